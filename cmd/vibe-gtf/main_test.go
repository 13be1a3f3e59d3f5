package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-gtf/internal/duckdb"
)

const (
	sampleGTF    = "../../testdata/sample.gtf"
	sampleGenome = "../../testdata/sample.genome"
)

// runCLI runs the command line against fresh viper state.
func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func outputLines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestRun_Attributes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	code, out, _ := runCLI(t, "attributes", sampleGTF)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, []string{
		"gene_id", "gene_type", "gene_name", "transcript_id",
		"transcript_type", "exon_number", "exon_id", "tag",
	}, outputLines(out))
}

func TestRun_Field(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name string
		args []string
		row  int
		want string
	}{
		{"last match", []string{"field", "tag", sampleGTF}, 7, "Ensembl_canonical"},
		{"first match", []string{"field", "--first", "tag", sampleGTF}, 7, "basic"},
		{"missing placeholder", []string{"field", "tag", sampleGTF}, 0, "."},
		{"custom placeholder", []string{"field", "--missing", "NA", "tag", sampleGTF}, 0, "NA"},
		{"fixed column", []string{"field", "start", sampleGTF}, 3, "300"},
		{"with position", []string{"field", "--with-position", "exon_id", sampleGTF}, 2, "chr1\t100\t120\tE1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, _ := runCLI(t, tt.args...)
			require.Equal(t, ExitSuccess, code)
			lines := outputLines(out)
			require.Len(t, lines, 10)
			assert.Equal(t, tt.want, lines[tt.row])
		})
	}
}

func TestRun_FieldMatchPolicyFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VIBE_GTF_ATTRIBUTES_MATCH", "first")

	code, out, _ := runCLI(t, "field", "tag", sampleGTF)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "basic", outputLines(out)[7])
}

func TestRun_ExpandCollapse(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tsv := filepath.Join(t.TempDir(), "sample.tsv")

	code, _, _ := runCLI(t, "expand", "-o", tsv, sampleGTF)
	require.Equal(t, ExitSuccess, code)

	data, err := os.ReadFile(tsv)
	require.NoError(t, err)
	header := outputLines(string(data))[0]
	assert.True(t, strings.HasSuffix(header, "\tgene_id\tgene_type\tgene_name\ttranscript_id\ttranscript_type\texon_number\texon_id\ttag"), header)

	code, out, _ := runCLI(t, "collapse", tsv)
	require.Equal(t, ExitSuccess, code)
	lines := outputLines(out)
	require.Len(t, lines, 10)
	assert.Equal(t,
		"chr1\tHAVANA\texon\t100\t120\t.\t+\t.\tgene_id \"G1\"; gene_name \"Foo\"; transcript_id \"T1\"; exon_number \"1\"; exon_id \"E1\";",
		lines[2])
}

func TestRun_ExpandSelectedKeysAsGTF(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	code, out, _ := runCLI(t, "expand", "--gtf", "--keys", "gene_name,gene_id", sampleGTF)
	require.Equal(t, ExitSuccess, code)
	lines := outputLines(out)
	require.Len(t, lines, 10)
	assert.Equal(t, "chr2\tENSEMBL\tgene\t500\t900\t.\t-\t.\tgene_name \"Bar\"; gene_id \"G2\";", lines[6])
}

func TestRun_BED(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	code, out, _ := runCLI(t, "bed", "--feature", "gene", "--name", "gene_name", sampleGTF)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, []string{
		"chr1\t100\t400\tFoo\t.\t+",
		"chr2\t500\t900\tBar\t.\t-",
	}, outputLines(out))

	code, out, _ = runCLI(t, "bed", "--feature", "gene", "--zero-based", sampleGTF)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "chr1\t99\t400\tG1\t.\t+", outputLines(out)[0])
}

func TestRun_Promoters(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	code, out, _ := runCLI(t, "promoters", "--genome", sampleGenome, sampleGTF)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, []string{
		"chr1\t0\t350\t0: G1, Foo\t.\t+",
		"chr2\t700\t1000\t1: G2, Bar\t.\t-",
	}, outputLines(out))
}

func TestRun_PromotersConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".vibe-gtf.yaml"),
		[]byte("promoter:\n  upstream: 10\n  downstream: 20\n"), 0644))

	code, out, _ := runCLI(t, "promoters", "--genome", sampleGenome, sampleGTF)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, []string{
		"chr1\t90\t120\t0: G1, Foo\t.\t+",
		"chr1\t140\t170\t1: G1, Foo\t.\t+",
		"chr2\t880\t910\t2: G2, Bar\t.\t-",
	}, outputLines(out))

	// Flags override the config file.
	code, out, _ = runCLI(t, "promoters", "--genome", sampleGenome, "--upstream", "0", "--downstream", "0", sampleGTF)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "chr1\t100\t100\t0: G1, Foo\t.\t+", outputLines(out)[0])
}

func TestRun_PromotersNegativeWindow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	code, _, stderr := runCLI(t, "promoters", "--genome", sampleGenome, "--upstream=-5", sampleGTF)
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "Error: ")
}

func TestRun_BaseMap(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	gtfPath := filepath.Join(dir, "sample.gtf")
	data, err := os.ReadFile(sampleGTF)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(gtfPath, data, 0644))

	code, out, _ := runCLI(t, "basemap", "--cache", gtfPath)
	require.Equal(t, ExitSuccess, code)
	lines := outputLines(out)
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "T1\t100,101,"), lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "T3\t900,899,"), lines[2])
	assert.FileExists(t, duckdb.PathFor(gtfPath))

	// Second run is served from the cache.
	code, cached, _ := runCLI(t, "basemap", "--cache", gtfPath)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, out, cached)
}

func TestRun_Locate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	code, out, _ := runCLI(t, "locate", sampleGTF, "chr1:155", "chr2:505", "chr1:50")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, []string{
		"chr1\t155\tT1\t+\t.",
		"chr1\t155\tT2\t+\t6",
		"chr2\t505\tT3\t-\t52",
	}, outputLines(out))

	code, out, _ = runCLI(t, "locate", "--transcript", "T1", sampleGTF, "300", "200", "x")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, []string{
		"T1\t300\t22",
		"T1\t200\t.",
		"T1\tx\t.",
	}, outputLines(out))

	code, _, _ = runCLI(t, "locate", sampleGTF, "chr1-155")
	assert.Equal(t, ExitUsage, code)
}

func TestRun_Export(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "sample.duckdb")

	code, out, _ := runCLI(t, "export", "--db", dbPath, "--genome", sampleGenome, sampleGTF)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Exported 10 features")

	store, err := duckdb.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.FeatureCount("")
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	regions, err := store.ReadBED(duckdb.TableBED)
	require.NoError(t, err)
	assert.Equal(t, 8, regions.Len(), "gene and transcript rows with equal extents collapse")

	promoters, err := store.ReadBED(duckdb.TablePromoters)
	require.NoError(t, err)
	require.Equal(t, 2, promoters.Len())
	assert.Equal(t, "0: G1, Foo", promoters.Records[0].Name)
}

func TestRun_Fasta(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	faPath := filepath.Join(dir, "ref.fa")
	require.NoError(t, os.WriteFile(faPath, []byte(">1 chromosome 1\nACGT\nAC\n>2\nGGGG\n"), 0644))

	code, out, _ := runCLI(t, "fasta", "get", faPath, "2")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, ">2\nGGGG\n", out)

	code, out, _ = runCLI(t, "fasta", "get", faPath, "1", "2")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, ">1\nACGTAC\n>2\nGGGG\n", out)

	code, _, _ = runCLI(t, "fasta", "get", faPath, "3")
	assert.Equal(t, ExitError, code)

	code, out, _ = runCLI(t, "fasta", "rewrite", faPath, "2", "TTTTTT")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, ">1 chromosome 1\nACGT\nAC\n>2\nTTTTTT\n", out)

	outPath := filepath.Join(dir, "new.fa")
	code, _, _ = runCLI(t, "fasta", "write", "-o", outPath, "x", "ACGT")
	require.Equal(t, ExitSuccess, code)
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, ">x\nACGT\n", string(data))
}

func TestRun_Config(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	code, out, _ := runCLI(t, "config", "set", "promoter.upstream", "2000")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, filepath.Join(home, ".vibe-gtf.yaml"))

	code, out, _ = runCLI(t, "config", "get", "promoter.upstream")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "2000\n", out)

	code, out, _ = runCLI(t, "config")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "upstream: 2000")

	code, out, _ = runCLI(t, "config", "get", "bed.name")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "gene_id\n", out, "unset keys report their default")

	code, _, _ = runCLI(t, "config", "get", "no.such.key")
	assert.Equal(t, ExitUsage, code)
}

func TestRun_ConfigSetValidates(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgFile := filepath.Join(home, ".vibe-gtf.yaml")

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "promoter.upstrem", "10"},
		{"negative window", "promoter.upstream", "-10"},
		{"non-numeric window", "promoter.downstream", "lots"},
		{"bad bool", "bed.zero_based", "maybe"},
		{"bad policy", "attributes.match", "middle"},
		{"empty name", "bed.name", " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, "config", "set", "--", tt.key, tt.value)
			assert.Equal(t, ExitUsage, code)
			assert.Contains(t, stderr, "Error: ")
			assert.NoFileExists(t, cfgFile)
		})
	}
}

func TestRun_ConfigSetTypedValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	code, _, _ := runCLI(t, "config", "set", "ATTRIBUTES.MATCH", "First")
	require.Equal(t, ExitSuccess, code)

	code, out, _ := runCLI(t, "field", "tag", sampleGTF)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "basic", outputLines(out)[7])

	code, _, _ = runCLI(t, "config", "set", "bed.zero_based", "yes")
	require.Equal(t, ExitSuccess, code)

	code, out, _ = runCLI(t, "bed", "--feature", "gene", sampleGTF)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "chr1\t99\t400\tG1\t.\t+", outputLines(out)[0])
}

func TestRun_Lenient(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.gtf")
	require.NoError(t, os.WriteFile(path, []byte(
		"chr1\tsrc\tgene\t10\t20\t.\t+\t.\tgene_id \"A\";\n"+
			"chr1\tsrc\tgene\tten\t20\t.\t+\t.\tgene_id \"B\";\n"), 0644))

	code, _, stderr := runCLI(t, "field", "gene_id", path)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "line 2")

	code, out, stderr := runCLI(t, "--lenient", "field", "gene_id", path)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "A\n", out)
	assert.Contains(t, stderr, "skipped malformed GTF lines")
}

func TestRun_ExitCodes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing argument", []string{"bed"}, ExitUsage},
		{"unknown command", []string{"nope"}, ExitUsage},
		{"unknown flag", []string{"bed", "--nope", sampleGTF}, ExitUsage},
		{"required flag", []string{"promoters", sampleGTF}, ExitUsage},
		{"missing file", []string{"bed", "no-such-file.gtf"}, ExitError},
		{"missing genome", []string{"promoters", "--genome", "no-such.genome", sampleGTF}, ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, tt.want, code)
			assert.Contains(t, stderr, "Error: ")
		})
	}
}

func TestRun_Version(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	code, out, _ := runCLI(t, "--version")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "dev")
}

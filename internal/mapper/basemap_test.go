package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-gtf/internal/gtf"
)

func mustLoad(t *testing.T, lines ...string) *gtf.Table {
	t.Helper()
	table, err := gtf.Load(lines)
	require.NoError(t, err)
	return table
}

func loadSample(t *testing.T) *gtf.Table {
	t.Helper()
	table, err := gtf.NewLoader("../../testdata/sample.gtf").Load()
	require.NoError(t, err)
	return table
}

func TestBuildBaseMap_Strand(t *testing.T) {
	tests := []struct {
		strand string
		want   []int64
	}{
		{"+", []int64{10, 11, 12}},
		{"-", []int64{12, 11, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.strand, func(t *testing.T) {
			table := mustLoad(t, "chrZ\tsrc\texon\t10\t12\t.\t"+tt.strand+"\t.\ttranscript_id \"T\"; exon_number \"1\";")
			m := BuildBaseMap(table, "exon")
			assert.Equal(t, BaseMap{"T": tt.want}, m)
		})
	}
}

func TestBuildBaseMap_Sample(t *testing.T) {
	m := BuildBaseMap(loadSample(t), "exon")
	require.Len(t, m, 3)

	t1 := m["T1"]
	require.Len(t, t1, 32)
	assert.Equal(t, int64(100), t1[0])
	assert.Equal(t, int64(120), t1[20])
	assert.Equal(t, int64(300), t1[21])
	assert.Equal(t, int64(310), t1[31])

	t3 := m["T3"]
	require.Len(t, t3, 57)
	assert.Equal(t, int64(900), t3[0])
	assert.Equal(t, int64(850), t3[50])
	assert.Equal(t, int64(505), t3[51])
	assert.Equal(t, int64(500), t3[56])

	assert.Equal(t, []string{"T1", "T2", "T3"}, m.Transcripts())
}

func TestBuildBaseMap_ExonOrdering(t *testing.T) {
	// Exons listed out of order, with exon 10 sorting after exon 2.
	table := mustLoad(t,
		"chr1\tsrc\texon\t50\t50\t.\t+\t.\ttranscript_id \"T\"; exon_number \"10\";",
		"chr1\tsrc\texon\t20\t20\t.\t+\t.\ttranscript_id \"T\"; exon_number \"2\";",
		"chr1\tsrc\texon\t10\t10\t.\t+\t.\ttranscript_id \"T\"; exon_number \"1\";",
		"chr1\tsrc\texon\t90\t90\t.\t+\t.\ttranscript_id \"T\";",
		"chr1\tsrc\texon\t60\t60\t.\t+\t.\ttranscript_id \"T\"; exon_number \"x\";",
	)

	m := BuildBaseMap(table, "exon")
	assert.Equal(t, []int64{10, 20, 50, 60, 90}, m["T"])
}

func TestBuildBaseMap_SkipsRows(t *testing.T) {
	table := mustLoad(t,
		"chr1\tsrc\texon\t10\t12\t.\t+\t.\tgene_id \"G\";",
		"chr1\tsrc\ttranscript\t10\t30\t.\t+\t.\ttranscript_id \"T2\";",
	)

	assert.Empty(t, BuildBaseMap(table, "exon"), "no transcript_id, and T2 has no exons")
	assert.Equal(t, BaseMap{"T2": featureBases(10, 30, false)}, BuildBaseMap(table, "transcript"))
}

func TestTranscriptPosition(t *testing.T) {
	m := BaseMap{"T": {10, 11, 12}}

	tests := []struct {
		name   string
		tid    string
		pos    int64
		want   int
		wantOK bool
	}{
		{"first base", "T", 10, 1, true},
		{"middle base", "T", 11, 2, true},
		{"last base", "T", 12, 3, true},
		{"outside", "T", 99, 0, false},
		{"unknown transcript", "U", 11, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TranscriptPosition(m, tt.tid, tt.pos)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranscriptPosition_FirstOccurrence(t *testing.T) {
	m := BaseMap{"T": {5, 6, 7, 6}}
	got, ok := TranscriptPosition(m, "T", 6)
	assert.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestTranscriptPositionString(t *testing.T) {
	m := BaseMap{"T": {10, 11, 12}}

	got, ok := TranscriptPositionString(m, "T", "11")
	assert.True(t, ok)
	assert.Equal(t, 2, got)

	for _, pos := range []string{"abc", "", "11.5"} {
		_, ok := TranscriptPositionString(m, "T", pos)
		assert.False(t, ok, "pos %q", pos)
	}
}

func TestMapPositions(t *testing.T) {
	m := BuildBaseMap(loadSample(t), "exon")

	ids := []gtf.Value{gtf.Some("T1"), gtf.Some("T3"), gtf.Null, gtf.Some("T2"), gtf.Some("T1")}
	positions := []gtf.Value{gtf.Some("300"), gtf.Some("505"), gtf.Some("1"), gtf.Some("nope")}

	assert.Equal(t, []gtf.Value{gtf.Some("22"), gtf.Some("52"), gtf.Null, gtf.Null, gtf.Null},
		MapPositions(m, ids, positions))
}

func TestMapPositions_ExpandedColumns(t *testing.T) {
	table := loadSample(t)
	m := BuildBaseMap(table, "exon")

	// Map each exon's start onto its own transcript.
	exons := gtf.ExpandAll(table.FilterFeature("exon"))
	exons.AddColumn("transcript_position",
		MapPositions(m, exons.Column("transcript_id"), gtf.ProjectField(exons, gtf.ColStart)))

	assert.Equal(t, []gtf.Value{
		gtf.Some("1"), gtf.Some("22"), gtf.Some("1"), gtf.Some("51"), gtf.Some("57"),
	}, exons.Column("transcript_position"))
}

func TestLegacy_RoundTrip(t *testing.T) {
	m := BaseMap{"T": {12, 11, 10}, "U": {}}

	legacy := m.Legacy()
	assert.Equal(t, map[string]string{"T": "12,11,10", "U": ""}, legacy)

	back, err := ParseLegacy(legacy)
	require.NoError(t, err)
	assert.Equal(t, m, back)

	_, err = ParseLegacy(map[string]string{"T": "1,x"})
	assert.Error(t, err)
}

package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnrollFileName(t *testing.T) {
	tests := []struct {
		name       string
		ok         bool
		key        string
		givenName  string
		familyName string
	}{
		{"12345678_Jana_Novakova.jpg", true, "12345678", "Jana", "Novakova"},
		{"A0000001_Mary-Ann_van_der_Berg.PNG", true, "A0000001", "Mary Ann", "van_der_Berg"},
		{"12345678_Jana.jpg", false, "", "", ""},
		{"12345678__Novakova.jpg", false, "", "", ""},
		{"12345678_Jana_Novakova.txt", false, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, ok := parseEnrollFileName(tt.name)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.key, req.ExternalKey)
			assert.Equal(t, tt.givenName, req.GivenName)
			assert.Equal(t, tt.familyName, req.FamilyName)
		})
	}
}

func TestCollectEnrollFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"12345678_Jana_Novakova.jpg", "notes.txt", "87654321_Petr_Svoboda.webp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "11111111_Sub_Dir.jpg"), 0o700))

	files, skipped, err := collectEnrollFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Equal(t, []string{"notes.txt"}, skipped)
}

func TestParseEmbedding(t *testing.T) {
	v, err := parseEmbedding("0.5, -1,2e-3")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1, 0.002}, v)

	_, err = parseEmbedding("0.5,abc")
	assert.Error(t, err)
}

func TestParseRecordTime(t *testing.T) {
	prague, err := time.LoadLocation("Europe/Prague")
	require.NoError(t, err)
	want := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC).UnixMilli()

	for _, value := range []string{"1710489600000", "2024-03-15T08:00:00Z", "2024-03-15 09:00:00"} {
		got, err := parseRecordTime(value, prague)
		require.NoError(t, err, value)
		assert.Equal(t, want, got, value)
	}

	_, err = parseRecordTime("tomorrow", prague)
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	id, err := parseID("7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	for _, bad := range []string{"0", "-1", "x"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

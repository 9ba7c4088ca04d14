package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/grammiz/internal/questiongen"
	"github.com/abhisek/grammiz/internal/stats"
)

func sampleHistory() []stats.WrongQuestion {
	return []stats.WrongQuestion{
		{
			Question: questiongen.Question{
				ID:           "q1",
				Text:         "She ___ to school every day.",
				Translation:  "她每天去上学。",
				Options:      []string{"go", "goes", "going", "gone"},
				AnswerIndex:  1,
				Explanation:  "Third person singular takes -s.",
				GrammarPoint: "一般现在时",
			},
			UserAnswerIndex: 0,
			Timestamp:       1700000000000,
		},
	}
}

func TestWriteHistoryJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHistory(&buf, sampleHistory(), "json"))

	var rows []historyRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "goes", rows[0].Answer)
	assert.Equal(t, "go", rows[0].YourAnswer)
	assert.Equal(t, "一般现在时", rows[0].GrammarPoint)
	assert.Equal(t, "2023-11-14T22:13:20Z", rows[0].Time)
}

func TestWriteHistoryYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHistory(&buf, sampleHistory(), "yaml"))

	var rows []historyRow
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"go", "goes", "going", "gone"}, rows[0].Options)
	assert.Equal(t, "她每天去上学。", rows[0].Translation)
	assert.Contains(t, buf.String(), "yourAnswer: go")
}

func TestWriteHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHistory(&buf, sampleHistory(), "table"))
	assert.Contains(t, buf.String(), "She ___ to school every day.")
	assert.Contains(t, buf.String(), "Grammar point")

	buf.Reset()
	require.NoError(t, writeHistory(&buf, nil, "table"))
	assert.Equal(t, "No entries.\n", buf.String())
}

func TestWriteHistoryUnknownFormat(t *testing.T) {
	err := writeHistory(&bytes.Buffer{}, nil, "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestOptionTextOutOfRange(t *testing.T) {
	assert.Equal(t, "", optionText([]string{"a"}, 3))
	assert.Equal(t, "", optionText([]string{"a"}, -1))
}

func TestReadCode(t *testing.T) {
	code, err := readCode(strings.NewReader("ignored"), []string{"  abc  "})
	require.NoError(t, err)
	assert.Equal(t, "abc", code)

	code, err = readCode(strings.NewReader("xyz\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "xyz", code)

	_, err = readCode(strings.NewReader("  \n"), nil)
	assert.Error(t, err)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "定语", truncate("定语从句", 2))
	assert.Equal(t, "abc", truncate("abc", 5))
}

// execute runs the root command with args against an isolated database.
func execute(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append(args, "--db", dbPath))
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GRAMMIZ_CONFIG", filepath.Join(dir, "missing.toml"))
	t.Setenv("GRAMMIZ_BACKUP_URL", "")
	t.Setenv("GRAMMIZ_QUIZ_COUNT", "")
	t.Setenv("GRAMMIZ_LOG_LEVEL", "")
	return filepath.Join(dir, "grammiz.db")
}

func TestExportImportRestoreCommands(t *testing.T) {
	db := isolateEnv(t)

	code := strings.TrimSpace(execute(t, db, "export"))
	require.NotEmpty(t, code)

	out := execute(t, db, "import", code)
	assert.Contains(t, out, "Imported: 0 answered")

	out = execute(t, db, "restore")
	assert.Contains(t, out, "Restored:")

	out = execute(t, db, "restore")
	assert.Contains(t, out, "Nothing to restore.")
}

func TestStatsAndHistoryCommandsOnEmptyDB(t *testing.T) {
	db := isolateEnv(t)

	out := execute(t, db, "stats")
	assert.Contains(t, out, "Questions answered:  0")

	out = execute(t, db, "history", "--list", "saved", "--format", "json")
	assert.JSONEq(t, "[]", out)

	out = execute(t, db, "clear", "saved")
	assert.Contains(t, out, "Cleared saved.")
}

func TestBackupPushWithoutEndpoint(t *testing.T) {
	db := isolateEnv(t)

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"backup", "push", "--db", db})
	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "no backup endpoint")
}

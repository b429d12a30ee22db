package statepaths

import (
	"strings"

	"github.com/amacrae2/parrot-bot/internal/pathutil"
	"github.com/spf13/viper"
)

const (
	PowerUpJournalFilename = "powerups.jsonl"
	SQLiteFilename         = "corpus.db"
	locksDirName           = ".fslocks"
)

func FileStateDir() string {
	return pathutil.ResolveStateDir(viper.GetString("file_state_dir"))
}

// CorpusDir holds one message_db_<user>.json per user.
func CorpusDir() string {
	return pathutil.ResolveStateChildDir(
		viper.GetString("file_state_dir"),
		viper.GetString("store.dir_name"),
		"corpus",
	)
}

func LocksDir() string {
	return pathutil.ResolveStateChildDir(viper.GetString("file_state_dir"), locksDirName, locksDirName)
}

func JournalPath() string {
	return pathutil.ResolveStateFile(viper.GetString("file_state_dir"), PowerUpJournalFilename)
}

func SQLitePath() string {
	if p := strings.TrimSpace(viper.GetString("store.sqlite_path")); p != "" {
		return pathutil.ResolveStateFile(viper.GetString("file_state_dir"), p)
	}
	return pathutil.ResolveStateFile(viper.GetString("file_state_dir"), SQLiteFilename)
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youtstadi/BotShkiperaPredlozhka/settings"
)

func testConfig(settingsPath string) Config {
	return Config{
		BotToken:      "123:abc",
		ReviewChatID:  -100200,
		PublishChatID: -100300,
		SettingsPath:  settingsPath,
		AdminIDs:      []int64{1},
		SendRateLimit: 25,
	}
}

func TestNewServerSurvivesCorruptSettingsFile(t *testing.T) {
	assert := assert.New(t)

	p := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o600))

	srv, err := NewServer(testConfig(p))
	assert.NoError(err)
	assert.NotNil(srv)
	assert.Equal(settings.Defaults().MaxVideoSizeMB, srv.settings.Get().MaxVideoSizeMB)
	assert.True(srv.settings.IsAdmin(1))
}

func TestNewServerFatalConditions(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	cfg := testConfig(filepath.Join(dir, "settings.json"))
	cfg.BotToken = ""
	_, err := NewServer(cfg)
	assert.Error(err)

	cfg = testConfig(filepath.Join(dir, "settings.json"))
	cfg.PublishChatID = 0
	_, err = NewServer(cfg)
	assert.Error(err)

	cfg = testConfig(filepath.Join(dir, "settings.json"))
	cfg.AdminIDs = nil
	_, err = NewServer(cfg)
	assert.Error(err)
}

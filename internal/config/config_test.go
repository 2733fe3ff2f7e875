package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.SuperprojectPath)
	assert.Equal(t, "auto/submodule-updates", cfg.AutomationBranch)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	assert.Equal(t, "https://gitlab.com/api/v4", cfg.GitLab.APIURL)
	assert.Equal(t, 95078, cfg.Forum.ThreadID)
	assert.Equal(t, "7384", cfg.Forum.APIUser)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.SuperprojectPath)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forksync.yaml")
	data := []byte("superproject_path: /srv/super\nautomation_branch: auto/sync\nschedule: \"15 4 * * *\"\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/super", cfg.SuperprojectPath)
	assert.Equal(t, "auto/sync", cfg.AutomationBranch)
	assert.Equal(t, "15 4 * * *", cfg.Schedule)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forksync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("superproject_path: /srv/super\n"), 0o600))

	t.Setenv("FORKSYNC_SUPERPROJECT", "/srv/other")
	t.Setenv("GH_API_TOKEN", "ghp_test")
	t.Setenv("XF_THREAD_ID", "12345")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/other", cfg.SuperprojectPath)
	assert.Equal(t, "ghp_test", cfg.GitHub.Token)
	assert.Equal(t, 12345, cfg.Forum.ThreadID)
}

func TestUnparseableThreadIDKeepsDefault(t *testing.T) {
	t.Setenv("XF_THREAD_ID", "not-a-number")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 95078, cfg.Forum.ThreadID)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.SuperprojectPath = ""
	assert.Error(t, cfg.Validate())
}

func TestForumEnabled(t *testing.T) {
	cfg := defaultConfig()
	assert.False(t, cfg.ForumEnabled(), "no API key configured")

	cfg.Forum.APIKey = "k"
	assert.True(t, cfg.ForumEnabled())
}

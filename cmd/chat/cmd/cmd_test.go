package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	listOutputFormat, listDirectionFilter, getOutputFormat = "table", "", "table"

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "chat v"+version+"\n", out)
}

func TestTopicsList(t *testing.T) {
	out, err := execute(t, "topics", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "chat.public")
	assert.Contains(t, out, "/user/{username}/queue/private")

	out, err = execute(t, "topics", "list", "--direction", "send")
	require.NoError(t, err)
	assert.Contains(t, out, "/app/chat.sendMessage")
	assert.NotContains(t, out, "/topic/public")
}

func TestTopicsList_JSON(t *testing.T) {
	out, err := execute(t, "topics", "list", "--format", "json")
	require.NoError(t, err)

	var result struct {
		Topics []struct {
			Name      string `json:"name"`
			Direction string `json:"direction"`
		} `json:"topics"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 5, result.Count)
	assert.Len(t, result.Topics, 5)
}

func TestTopicsList_UnknownFormat(t *testing.T) {
	_, err := execute(t, "topics", "list", "--format", "xml")
	assert.Error(t, err)
}

func TestTopicsGet(t *testing.T) {
	out, err := execute(t, "topics", "get", "chat.private_queue")
	require.NoError(t, err)
	assert.Contains(t, out, "Params:      username")
	assert.Contains(t, out, "Direction:   subscribe")

	_, err = execute(t, "topics", "get", "chat.nope")
	assert.ErrorContains(t, err, "not found")
}

func TestTopicsValidate(t *testing.T) {
	out, err := execute(t, "topics", "validate", "chat.public")
	require.NoError(t, err)
	assert.Contains(t, out, "✅ Topic 'chat.public' is valid")

	out, err = execute(t, "topics", "validate", "Invalid.Topic")
	require.Error(t, err)
	assert.Contains(t, out, "❌")

	_, err = execute(t, "topics", "validate", "chat.missing")
	assert.ErrorContains(t, err, "not found")
}

func TestPrompter_ReadsPipedInput(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("alice\nsecret"))
	var prompts bytes.Buffer
	cmd.SetErr(&prompts)

	p := newPrompter(cmd)
	name, err := p.line("Username: ")
	require.NoError(t, err)
	password, err := p.password("Password: ")
	require.NoError(t, err)

	assert.Equal(t, "alice", name)
	assert.Equal(t, "secret", password)
	assert.Equal(t, "Username: Password: ", prompts.String())

	_, err = p.line("Email: ")
	assert.Error(t, err)
}

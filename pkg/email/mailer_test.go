package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/notifyhub/pkg/email"
)

func validParams() email.SendEmailParams {
	return email.SendEmailParams{
		SendTo:   "fan@example.com",
		Subject:  "New song",
		BodyHTML: "<p>Listen now</p>",
		Tag:      "new_song_email",
	}
}

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*email.SendEmailParams)
		errMsg string
	}{
		{name: "valid", mutate: func(*email.SendEmailParams) {}},
		{name: "plus address", mutate: func(p *email.SendEmailParams) { p.SendTo = "fan.one+tag@sub.example.com" }},
		{name: "empty SendTo", mutate: func(p *email.SendEmailParams) { p.SendTo = "" }, errMsg: "SendTo is required"},
		{name: "blank SendTo", mutate: func(p *email.SendEmailParams) { p.SendTo = "   " }, errMsg: "SendTo is required"},
		{name: "no at sign", mutate: func(p *email.SendEmailParams) { p.SendTo = "fan" }, errMsg: "SendTo must be a valid email address"},
		{name: "no domain", mutate: func(p *email.SendEmailParams) { p.SendTo = "fan@" }, errMsg: "SendTo must be a valid email address"},
		{name: "no local part", mutate: func(p *email.SendEmailParams) { p.SendTo = "@example.com" }, errMsg: "SendTo must be a valid email address"},
		{name: "blank subject", mutate: func(p *email.SendEmailParams) { p.Subject = " " }, errMsg: "Subject is required"},
		{name: "blank body", mutate: func(p *email.SendEmailParams) { p.BodyHTML = "" }, errMsg: "BodyHTML is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, email.ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func readOutput(t *testing.T, dir string) (html string, envelope map[string]any, names []string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		names = append(names, e.Name())
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		switch filepath.Ext(e.Name()) {
		case ".html":
			html = string(data)
		case ".json":
			require.NoError(t, json.Unmarshal(data, &envelope))
		}
	}
	return html, envelope, names
}

func TestDevSender_SendEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("writes body and envelope", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		require.NoError(t, email.NewDevSender(dir).SendEmail(ctx, validParams()))

		html, envelope, names := readOutput(t, dir)
		require.Len(t, names, 2)
		assert.Equal(t, "<p>Listen now</p>", html)
		assert.Equal(t, "fan@example.com", envelope["send_to"])
		assert.Equal(t, "new_song_email", envelope["tag"])
		assert.NotEmpty(t, envelope["timestamp"])
		assert.True(t, strings.HasSuffix(names[0], "new_song_email.html") || strings.HasSuffix(names[0], "new_song_email.json"))
	})

	t.Run("subject names file without tag", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		p := validParams()
		p.Tag = ""
		p.Subject = "Tickets Confirmed!"
		require.NoError(t, email.NewDevSender(dir).SendEmail(ctx, p))

		_, envelope, names := readOutput(t, dir)
		require.Len(t, names, 2)
		assert.Contains(t, names[0], "tickets_confirmed")
		assert.NotContains(t, envelope, "tag")
	})

	t.Run("invalid params write nothing", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		p := validParams()
		p.SendTo = ""
		assert.ErrorIs(t, email.NewDevSender(dir).SendEmail(ctx, p), email.ErrInvalidParams)

		_, _, names := readOutput(t, dir)
		assert.Empty(t, names)
	})

	t.Run("unwritable directory", func(t *testing.T) {
		t.Parallel()

		err := email.NewDevSender("/dev/null/emails").SendEmail(ctx, validParams())
		assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
		assert.Contains(t, err.Error(), "failed to create directory")
	})
}

func TestNewSender(t *testing.T) {
	t.Parallel()

	dev, err := email.NewSender(email.Config{
		SenderEmail:  "noreply@example.com",
		SupportEmail: "support@example.com",
		DevOutputDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.IsType(t, &email.DevSender{}, dev)

	prod, err := email.NewSender(email.Config{
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "noreply@example.com",
		SupportEmail:         "support@example.com",
	})
	require.NoError(t, err)
	assert.NotNil(t, prod)
	assert.NotEqual(t, dev, prod)
}

package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"hookrelay/internal/common"
	"hookrelay/internal/config"
	"hookrelay/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	outcome *notification.Outcome
	got     *notification.Message
}

func (s *stubSender) Send(_ context.Context, msg *notification.Message) *notification.Outcome {
	s.got = msg
	return s.outcome
}

func stubFactory(s *stubSender) senderFactory {
	return func(context.Context, *config.Config) (notification.Sender, func(), error) {
		return s, func() {}, nil
	}
}

// isolate points the configuration at webhookURL and nothing else.
func isolate(t *testing.T, webhookURL string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, key := range []string{"WEBHOOK_URL", "WEBHOOK_TYPE", "FEISHU_WEBHOOK_URL", "IMGUR_CLIENT_ID"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("HOOKRELAY_WEBHOOK_URL", webhookURL)
}

func run(t *testing.T, factory senderFactory, args ...string) (string, error) {
	t.Helper()
	if args == nil {
		args = []string{}
	}
	cmd := newRootCmd(factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSend_Flags(t *testing.T) {
	isolate(t, "https://hooks.test/x")
	sender := &stubSender{outcome: &notification.Outcome{Delivered: true, StatusCode: 200}}

	out, err := run(t, stubFactory(sender),
		"--title", "Deploy",
		"--body", "done",
		"--link", "https://ci.test/1",
		"--image-url", "https://img.test/a.png",
		"--priority", "4",
		"--template", "status",
		"--data", "status=success",
		"--data", "details=a=b",
		"--attach", "https://logs.test/1",
		"--view", "Open=https://ci.test/1?x=y",
	)
	require.NoError(t, err)
	assert.Equal(t, "Notification sent successfully\n", out)

	msg := sender.got
	require.NotNil(t, msg)
	assert.Equal(t, "Deploy", msg.Title)
	assert.Equal(t, "done", msg.Body)
	assert.Equal(t, 4, msg.Priority)
	assert.Equal(t, "status", msg.Template)
	assert.Equal(t, map[string]any{"status": "success", "details": "a=b"}, msg.TemplateData)
	assert.Equal(t, []string{"https://logs.test/1"}, msg.Attachments)
	require.Len(t, msg.Actions, 1)
	assert.Equal(t, notification.Action{Action: notification.ActionView, Label: "Open", URL: "https://ci.test/1?x=y"}, msg.Actions[0])
}

func TestSend_PositionalBody(t *testing.T) {
	isolate(t, "https://hooks.test/x")
	sender := &stubSender{outcome: &notification.Outcome{Delivered: true}}

	_, err := run(t, stubFactory(sender), "build", "finished")
	require.NoError(t, err)
	assert.Equal(t, "build finished", sender.got.Body)
}

func TestSend_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no body", nil},
		{"bad data", []string{"--body", "x", "--data", "novalue"}},
		{"bad view", []string{"--body", "x", "--view", "label-only"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t, "https://hooks.test/x")
			sender := &stubSender{}
			_, err := run(t, stubFactory(sender), tt.args...)
			assert.Error(t, err)
			assert.Nil(t, sender.got)
		})
	}
}

func TestSend_MissingWebhookURL(t *testing.T) {
	isolate(t, "")
	sender := &stubSender{}

	_, err := run(t, stubFactory(sender), "--body", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook.url")
	assert.Nil(t, sender.got)
}

func TestSend_NotDeliveredFails(t *testing.T) {
	isolate(t, "https://hooks.test/x")
	sender := &stubSender{outcome: &notification.Outcome{
		Err: &common.DeliveryError{Provider: "generic", StatusCode: 500, Body: "boom"},
	}}

	out, err := run(t, stubFactory(sender), "--body", "x")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Equal(t, "Failed to send notification: generic webhook returned HTTP 500: boom", err.Error())
}

func TestSend_EndToEnd(t *testing.T) {
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received = string(body)
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()
	isolate(t, srv.URL)

	out, err := run(t, defaultSender, "--title", "Hi", "--body", "there", "--timeout", "5s")
	require.NoError(t, err)
	assert.Equal(t, "Notification sent successfully: ok\n", out)
	assert.Contains(t, received, `"text":"there"`)
}

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestEmailMessage_Render(t *testing.T) {
	ParseEmailTemplates(&Config{TestMode: true, FrontendBaseURL: "https://evals.test"}, nopLogger{})

	t.Run("templated", func(t *testing.T) {
		msg := &EmailMessage{
			TemplateName: "signin",
			TemplateData: map[string]string{"UID": "dWlk", "Token": "tok-en"},
		}
		require.NoError(t, msg.Render())
		assert.Contains(t, msg.TextContent, "https://evals.test/signin?uid=dWlk&token=tok-en")
		assert.Contains(t, msg.HTMLContent, "<a href=")
		assert.True(t, msg.HasContent())
	})

	t.Run("plain body", func(t *testing.T) {
		msg := &EmailMessage{BodyStr: "hi"}
		require.NoError(t, msg.Render())
		assert.Equal(t, "hi", msg.TextContent)
		assert.Empty(t, msg.HTMLContent)
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := &EmailMessage{TemplateName: "lol"}
		assert.Error(t, msg.Render())
	})

	t.Run("missing key", func(t *testing.T) {
		msg := &EmailMessage{TemplateName: "signin", TemplateData: map[string]string{}}
		assert.Error(t, msg.Render())
	})
}

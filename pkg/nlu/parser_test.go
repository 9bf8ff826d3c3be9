package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

func parse(t *testing.T, text string) contracts.Intent {
	t.Helper()
	p := NewParser()
	return p.Parse(contracts.NewCommandRequest(text, contracts.SourceText))
}

func TestParseTable(t *testing.T) {
	cases := []struct {
		text  string
		want  contracts.IntentType
		slots map[string]string
	}{
		{"open calculator", contracts.IntentOpenApp, map[string]string{"app_name": "calculator"}},
		{"launch notepad", contracts.IntentOpenApp, map[string]string{"app_name": "notepad"}},
		{"Open Calculator", contracts.IntentOpenApp, map[string]string{"app_name": "calculator"}},
		{"go to https://github.com", contracts.IntentOpenURL, map[string]string{"url": "https://github.com"}},
		{"open www.google.com", contracts.IntentOpenURL, map[string]string{"url": "https://www.google.com"}},
		{"visit github.com", contracts.IntentOpenURL, map[string]string{"url": "https://github.com"}},
		{"search for python tutorials", contracts.IntentWebSearch, map[string]string{"query": "python tutorials"}},
		{"what is clean architecture", contracts.IntentWebSearch, map[string]string{"query": "clean architecture"}},
		{"system info", contracts.IntentSystemInfo, nil},
		{"what's my system", contracts.IntentSystemInfo, nil},
		{"ls .", contracts.IntentListDir, map[string]string{"path": "."}},
		{"cat config.json", contracts.IntentReadFile, map[string]string{"path": "config.json"}},
		{"touch readme.md", contracts.IntentCreateFile, map[string]string{"path": "readme.md"}},
		{"create file hello.txt with content hello world", contracts.IntentCreateFile, map[string]string{"path": "hello.txt", "content": "hello world"}},
		{"write hello to notes.txt", contracts.IntentWriteFile, map[string]string{"content": "hello", "path": "notes.txt"}},
		{"delete file old.log", contracts.IntentDeleteFile, map[string]string{"path": "old.log"}},
		{"open file report.pdf", contracts.IntentOpenFile, map[string]string{"path": "report.pdf"}},
		{"yes", contracts.IntentConfirm, nil},
		{"do it", contracts.IntentConfirm, nil},
		{"no", contracts.IntentDeny, nil},
		{"cancel", contracts.IntentDeny, nil},
		{"random gibberish nonsense", contracts.IntentUnknown, nil},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			intent := parse(t, tc.text)
			require.Equal(t, tc.want, intent.Type)
			for name, want := range tc.slots {
				assert.Equal(t, want, intent.Slot(name, ""), "slot %q", name)
			}
			if tc.want == contracts.IntentUnknown {
				assert.Zero(t, intent.Confidence)
			} else {
				assert.Equal(t, 1.0, intent.Confidence)
			}
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	p := NewParser()
	req := contracts.NewCommandRequest("open calculator", contracts.SourceText)
	first := p.Parse(req)
	for i := 0; i < 50; i++ {
		again := p.Parse(req)
		assert.Equal(t, first.Type, again.Type)
		assert.Equal(t, first.Slots, again.Slots)
		assert.Equal(t, first.Confidence, again.Confidence)
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		intent := parse(t, text)
		assert.Equal(t, contracts.IntentUnknown, intent.Type)
		assert.Zero(t, intent.Confidence)
	}
}

func TestSiteAliasRewrite(t *testing.T) {
	intent := parse(t, "open youtube")
	require.Equal(t, contracts.IntentOpenURL, intent.Type)
	assert.Equal(t, "https://www.youtube.com", intent.Slot("url", ""))

	// A name outside the alias table stays an app launch.
	intent = parse(t, "open calculator")
	assert.Equal(t, contracts.IntentOpenApp, intent.Type)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"  Open   Calculator  ",
		"What's In ~/Documents",
		"DELETE file /tmp/old.txt",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "normalize must be idempotent for %q", in)
	}
}

func TestIntentRequestBackReference(t *testing.T) {
	p := NewParser()
	req := contracts.NewCommandRequest("open calculator", contracts.SourceText)
	intent := p.Parse(req)
	assert.Equal(t, req.ID, intent.Request.ID)
	assert.Equal(t, "open calculator", intent.Request.RawText)
}

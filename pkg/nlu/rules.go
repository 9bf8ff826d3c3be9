package nlu

import (
	"regexp"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// defaultRules is the built-in command grammar. Input reaches these
// patterns already folded and whitespace-collapsed, so the patterns
// themselves are lowercase and single-spaced. Higher priority is
// checked first; confirm/deny outrank everything so a bare "yes"
// can never be swallowed by a broader pattern.
func defaultRules() []Rule {
	return []Rule{
		{
			Intent: contracts.IntentConfirm,
			Patterns: compile(
				`^(?:yes|yep|yeah|confirm|confirmed|do it|proceed|go ahead|sure)[.!]?$`,
				`^i confirm$`,
			),
			Priority: 20,
			Examples: []string{"yes", "confirm", "do it"},
		},
		{
			Intent: contracts.IntentDeny,
			Patterns: compile(
				`^(?:no|nope|deny|denied|cancel|stop|abort|never mind|nevermind)[.!]?$`,
			),
			Priority: 20,
			Examples: []string{"no", "cancel", "stop"},
		},
		{
			Intent: contracts.IntentOpenURL,
			Patterns: compile(
				`^(?:go to|open|visit) (?P<url>https?://\S+)$`,
				`^(?:go to|open|visit) (?P<url>www\.\S+)$`,
				`^(?:go to|open|visit) (?P<url>[\w.-]+\.\w{2,})$`,
				`^open url (?P<url>\S+)$`,
				`^navigate to (?P<url>\S+)$`,
			),
			Priority: 15,
			Examples: []string{"go to https://github.com", "open www.google.com", "visit github.com"},
		},
		{
			Intent: contracts.IntentOpenFile,
			Patterns: compile(
				`^open file (?P<path>.+)$`,
			),
			Priority: 12,
			Examples: []string{"open file ~/Documents/report.pdf"},
		},
		{
			Intent: contracts.IntentOpenApp,
			Patterns: compile(
				`^open (?P<app_name>[\w ]+?)(?: app)?$`,
				`^launch (?P<app_name>[\w ]+)$`,
				`^start (?P<app_name>[\w ]+)$`,
				`^run (?P<app_name>[\w ]+)$`,
			),
			Priority: 10,
			Examples: []string{"open calculator", "launch notepad", "start browser"},
		},
		{
			Intent: contracts.IntentListDir,
			Patterns: compile(
				`^list (?:files in )?(?P<path>.+)$`,
				`^show (?:files in )?(?P<path>.+)$`,
				`^what is in (?P<path>.+)$`,
				`^ls (?P<path>.+)$`,
				`^dir (?P<path>.+)$`,
				`^list (?:the )?directory(?: (?P<path>.+))?$`,
				`^show (?:the )?directory(?: (?P<path>.+))?$`,
			),
			Priority: 10,
			Examples: []string{"list files in ~/Documents", "show ~/Downloads", "ls ."},
		},
		{
			Intent: contracts.IntentReadFile,
			Patterns: compile(
				`^read (?:file )?(?P<path>.+)$`,
				`^show contents of (?:file )?(?P<path>.+)$`,
				`^cat (?P<path>.+)$`,
				`^view (?:file )?(?P<path>.+)$`,
			),
			Priority: 5,
			Examples: []string{"read file ~/Documents/notes.txt", "cat config.json"},
		},
		{
			Intent: contracts.IntentCreateFile,
			Patterns: compile(
				`^create (?:a )?(?:new )?file (?P<path>\S+)(?: with (?:content )?(?P<content>.+))?$`,
				`^make (?:a )?(?:new )?file (?P<path>.+)$`,
				`^touch (?P<path>.+)$`,
				`^new file (?P<path>.+)$`,
			),
			Priority: 5,
			Examples: []string{"create file ~/Documents/notes.txt", "touch readme.md", "create file hello.txt with content hello world"},
		},
		{
			Intent: contracts.IntentWriteFile,
			Patterns: compile(
				`^write (?P<content>.+?) to (?:file )?(?P<path>.+)$`,
				`^save (?P<content>.+?) to (?:file )?(?P<path>.+)$`,
				`^append (?P<content>.+?) to (?:file )?(?P<path>.+)$`,
			),
			Priority: 5,
			Examples: []string{"write hello world to ~/Documents/test.txt"},
		},
		{
			Intent: contracts.IntentDeleteFile,
			Patterns: compile(
				`^delete (?:file )?(?P<path>.+)$`,
				`^remove (?:file )?(?P<path>.+)$`,
				`^rm (?:-r )?(?P<path>.+)$`,
				`^erase (?:file )?(?P<path>.+)$`,
			),
			Priority: 5,
			Examples: []string{"delete file ~/Documents/old.txt", "rm -r ~/old_folder"},
		},
		{
			// Registered ahead of web search so "what is my system"
			// is not swallowed by the broader "what is" pattern.
			Intent: contracts.IntentSystemInfo,
			Patterns: compile(
				`^(?:show )?system info(?:rmation)?$`,
				`^what is my system$`,
				`^system status$`,
				`^computer info(?:rmation)?$`,
				`^about (?:this )?computer$`,
			),
			Priority: 5,
			Examples: []string{"show system info", "system status"},
		},
		{
			Intent: contracts.IntentWebSearch,
			Patterns: compile(
				`^search (?:for )?(?P<query>.+)$`,
				`^google (?P<query>.+)$`,
				`^look up (?P<query>.+)$`,
				`^find (?:information (?:about|on) )?(?P<query>.+)$`,
				`^what is (?P<query>.+)$`,
				`^who is (?P<query>.+)$`,
			),
			Priority: 5,
			Examples: []string{"search for go generics", "what is clean architecture"},
		},
	}
}

// defaultSiteAliases lets "open youtube" resolve to the site instead
// of a local application.
func defaultSiteAliases() map[string]string {
	return map[string]string{
		"youtube":   "https://www.youtube.com",
		"gmail":     "https://mail.google.com",
		"google":    "https://www.google.com",
		"github":    "https://github.com",
		"wikipedia": "https://www.wikipedia.org",
		"reddit":    "https://www.reddit.com",
		"twitter":   "https://twitter.com",
	}
}

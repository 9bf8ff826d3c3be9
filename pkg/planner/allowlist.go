package planner

// defaultAllowedApps is the built-in application allow-list. Matching
// is case-insensitive against the normalized app-name slot.
func defaultAllowedApps() []string {
	return []string{
		// OS built-ins
		"notepad", "notepad++", "calculator", "calc", "wordpad",
		"cmd", "powershell", "pwsh", "terminal", "windows terminal",
		"explorer", "file explorer", "paint", "mspaint",
		"settings", "control panel", "task manager", "taskmgr",

		// Browsers
		"browser", "firefox", "mozilla firefox",
		"chrome", "google chrome", "chromium",
		"edge", "microsoft edge", "safari", "opera", "brave", "vivaldi",

		// Editors and development
		"code", "vscode", "visual studio code",
		"sublime", "sublime text", "vim", "nano", "emacs",
		"pycharm", "webstorm", "intellij", "idea", "android studio",

		// Office
		"word", "winword", "excel", "powerpoint", "outlook",
		"libreoffice", "libreoffice writer", "libreoffice calc",
		"libreoffice impress",

		// Communication
		"discord", "telegram", "slack", "teams", "microsoft teams",
		"zoom", "whatsapp", "signal", "messenger",

		// Media
		"vlc", "mpv", "spotify", "audacity", "obs", "obs studio", "steam",

		// Graphics
		"gimp", "inkscape", "blender", "krita", "figma",

		// File managers and archiving
		"nautilus", "files", "dolphin", "thunar", "7zip", "winrar",

		// Terminals and shells
		"gnome terminal", "konsole", "xterm", "alacritty", "kitty",
		"tilix", "bash", "zsh", "fish",

		// Monitoring
		"htop", "top", "gnome system monitor", "resource monitor",

		// Viewers
		"evince", "document viewer", "okular", "acrobat", "adobe reader",

		// Notes
		"obsidian", "notion", "onenote", "joplin", "logseq",

		// Cloud sync
		"dropbox", "onedrive", "google drive", "nextcloud",

		// Security
		"keepass", "keepassxc", "bitwarden", "1password",

		// Virtualization
		"virtualbox", "vmware", "docker", "docker desktop",

		// Remote access
		"filezilla", "putty", "winscp", "remmina", "remote desktop",

		// Tooling
		"git", "git bash", "github desktop", "dbeaver", "jupyter", "python",

		// Fallback
		"default app", "system default",
	}
}

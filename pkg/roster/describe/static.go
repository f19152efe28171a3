package describe

import (
	"context"
	"fmt"
	"strings"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// curated holds hand-written suggestions for tools common enough that a
// canned answer beats a model round trip.
var curated = map[types.PackageType]map[string]Suggestion{
	types.TypeBrew: {
		"git":       {Description: "Distributed version control system for tracking changes", Example: "git status"},
		"node":      {Description: "JavaScript runtime built on Chrome V8 engine", Example: "node --version"},
		"python":    {Description: "Interpreted programming language", Example: "python3 --version"},
		"docker":    {Description: "Platform for developing and running containerized applications", Example: "docker --version"},
		"kubectl":   {Description: "Command-line tool for controlling Kubernetes clusters", Example: "kubectl get pods"},
		"terraform": {Description: "Infrastructure as code tool for building and managing resources", Example: "terraform --version"},
		"jq":        {Description: "Lightweight command-line JSON processor", Example: "jq '.name' package.json"},
		"curl":      {Description: "Command-line tool for transferring data with URLs", Example: "curl -I https://example.com"},
		"wget":      {Description: "Command-line utility for downloading files from web", Example: "wget https://example.com/file.zip"},
		"htop":      {Description: "Interactive process viewer and system monitor", Example: "htop"},
		"tree":      {Description: "Recursive directory listing command", Example: "tree -L 2"},
		"ripgrep":   {Description: "Fast text search tool that recursively searches directories", Example: `rg "pattern" src/`},
		"fd":        {Description: "Simple and fast alternative to find command", Example: `fd "*.py" src/`},
		"bat":       {Description: "Syntax-highlighted cat command with Git integration", Example: "bat README.md"},
		"eza":       {Description: "Modern ls replacement with colors and Git status", Example: "eza -la"},
		"fzf":       {Description: "Command-line fuzzy finder for interactive selections", Example: "find . | fzf"},
		"tmux":      {Description: "Terminal multiplexer for managing multiple sessions", Example: "tmux new -s work"},
		"neovim":    {Description: "Modern Vim-based text editor with extensibility", Example: "nvim file.txt"},
		"awscli":    {Description: "Official Amazon Web Services command-line interface", Example: "aws s3 ls"},
		"gh":        {Description: "GitHub command-line tool for repository management", Example: "gh repo list"},
	},
	types.TypeCask: {
		"visual-studio-code": {Description: "Lightweight but powerful source code editor", Example: "Open from Applications"},
		"google-chrome":      {Description: "Fast and secure web browser from Google", Example: "Open from Applications"},
		"firefox":            {Description: "Open-source web browser focused on privacy", Example: "Open from Applications"},
		"docker":             {Description: "Desktop application for container development", Example: "Open from Applications"},
		"slack":              {Description: "Team collaboration and messaging platform", Example: "Open from Applications"},
		"zoom":               {Description: "Video conferencing and online meeting platform", Example: "Open from Applications"},
		"spotify":            {Description: "Music streaming service and player", Example: "Open from Applications"},
		"1password":          {Description: "Password manager for storing secure credentials", Example: "Open from Applications"},
		"alfred":             {Description: "Productivity app for macOS with hotkeys and workflows", Example: "Cmd+Space to open"},
		"raycast":            {Description: "Extensible launcher with powerful commands", Example: "Cmd+Space to open"},
		"iterm2":             {Description: "Terminal emulator replacement for macOS", Example: "Open from Applications"},
		"notion":             {Description: "All-in-one workspace for notes and project management", Example: "Open from Applications"},
		"figma":              {Description: "Collaborative interface design and prototyping tool", Example: "Open from Applications"},
		"postman":            {Description: "API development and testing platform", Example: "Open from Applications"},
	},
	types.TypeMAS: {
		"Xcode":   {Description: "Apple's integrated development environment for iOS/macOS", Example: "mas install 497799835"},
		"Keynote": {Description: "Apple's presentation software", Example: "mas install 409183694"},
		"Numbers": {Description: "Apple's spreadsheet application", Example: "mas install 409203825"},
		"Pages":   {Description: "Apple's word processing software", Example: "mas install 409201541"},
	},
	types.TypeTap: {
		"homebrew/bundle":     {Description: "Homebrew tap for managing dependencies with Brewfiles", Example: "brew tap homebrew/bundle"},
		"homebrew/services":   {Description: "Homebrew tap for managing background services", Example: "brew tap homebrew/services"},
		"homebrew/cask-fonts": {Description: "Homebrew tap for installing fonts via Cask", Example: "brew tap homebrew/cask-fonts"},
	},
}

// Static serves curated suggestions and per-type fallback text. It needs
// no network or subprocess, so it is always available.
type Static struct{}

// NewStatic returns the static provider.
func NewStatic() *Static {
	return &Static{}
}

// Name implements Provider.
func (s *Static) Name() string { return "static" }

// Available implements Provider. The static table is always usable.
func (s *Static) Available(ctx context.Context) bool { return true }

// Describe implements Provider. Unknown names get generic per-type text,
// so the result is never empty and never an error.
func (s *Static) Describe(ctx context.Context, cand types.Candidate) (Suggestion, error) {
	if sug, ok := curated[cand.Type][cand.Name]; ok {
		return sug, nil
	}
	return fallback(cand), nil
}

// fallback builds generic text from the candidate's name and type.
func fallback(cand types.Candidate) Suggestion {
	spaced := strings.NewReplacer("-", " ", "_", " ").Replace(cand.Name)

	switch cand.Type {
	case types.TypeBrew:
		return Suggestion{
			Description: fmt.Sprintf("Command-line tool: %s", spaced),
			Example:     fmt.Sprintf("%s --help", cand.Name),
		}
	case types.TypeCask:
		return Suggestion{
			Description: fmt.Sprintf("macOS application: %s", spaced),
			Example:     fmt.Sprintf("Open %s from the Applications folder", cand.Name),
		}
	case types.TypeMAS:
		sug := Suggestion{
			Description: fmt.Sprintf("Mac App Store application: %s", cand.Name),
			Example:     fmt.Sprintf("Install %s from Mac App Store", cand.Name),
		}
		if cand.ExternalID != "" {
			sug.Example = fmt.Sprintf("mas install %s", cand.ExternalID)
		}
		return sug
	case types.TypeTap:
		return Suggestion{
			Description: fmt.Sprintf("Homebrew tap providing additional packages: %s", cand.Name),
			Example:     fmt.Sprintf("brew tap %s", cand.Name),
		}
	default:
		return Suggestion{
			Description: cand.Name,
			Example:     fmt.Sprintf("%s --help", cand.Name),
		}
	}
}

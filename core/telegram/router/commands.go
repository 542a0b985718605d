package router

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/cloudbot/core/logger"
)

// Command is a slash command with its handler and menu metadata.
type Command struct {
	Handler     Handler
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// CommandInfo is the public part of a command shown in the client's menu.
type CommandInfo struct {
	Name        string
	Description string
}

// Command registers a slash command. Commands take precedence over a flow in
// progress, so /cancel always works.
func (r *Router) Command(name string, cmd Command) error {
	var err error
	switch {
	case name == "" || cmd.Handler == nil || cmd.Description == "":
		err = fmt.Errorf("router: command %q: handler and description are required", name)
	case name[0] != '/':
		err = fmt.Errorf("router: command %q: missing slash prefix", name)
	default:
		if key, _, exists := r.LookupCommand(name); exists {
			err = fmt.Errorf("router: command %q collides with %q", name, key)
		}
		for _, alias := range cmd.Aliases {
			if key, _, exists := r.LookupCommand(alias); exists && err == nil {
				err = fmt.Errorf("router: alias %q of %q collides with %q", alias, name, key)
			}
		}
	}
	if err != nil {
		r.errs = append(r.errs, err)
		logger.Warn(context.Background(), "tg.wire", "register.command.skip",
			slog.String("name", name),
			slog.String("err", err.Error()),
		)
		return err
	}
	r.commands[name] = cmd
	return nil
}

// LookupCommand resolves "/name", "/name@bot" or "/name args" and aliases to
// the canonical command.
func (r *Router) LookupCommand(text string) (string, Command, bool) {
	name := commandName(text)
	if name == "" {
		return "", Command{}, false
	}
	if cmd, ok := r.commands[name]; ok && cmd.Handler != nil {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if "/"+strings.TrimPrefix(alias, "/") == name {
				return key, cmd, true
			}
		}
	}
	return "", Command{}, false
}

func commandName(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	if i := strings.IndexAny(text, " \n\t"); i >= 0 {
		text = text[:i]
	}
	if i := strings.IndexByte(text, '@'); i >= 0 {
		text = text[:i]
	}
	return strings.ToLower(text)
}

// ListCommands returns commands sorted by name, optionally without hidden and
// admin-only ones.
func (r *Router) ListCommands(visibleOnly bool) []CommandInfo {
	var list []CommandInfo
	for name, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, CommandInfo{Name: name, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

package console

import (
	"strings"

	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/ui"
)

func (c *Console) registerCommands() []error {
	return []error{
		c.router.Command("/start", router.Command{
			Handler:     c.start,
			Description: "Sign in or open the main menu",
		}),
		c.router.Command("/menu", router.Command{
			Handler:     c.menuCommand,
			Description: "Open the main menu",
		}),
		c.router.Command("/cancel", router.Command{
			Handler:     c.cancel,
			Description: "Abort the current dialog",
		}),
		c.router.Command("/logout", router.Command{
			Handler:     c.logout,
			Description: "Forget the entered credentials",
			Aliases:     []string{"/signout"},
		}),
		c.router.Command("/history", router.Command{
			Handler:     c.history,
			Description: "Show your recent operations",
		}),
		c.router.Command("/help", router.Command{
			Handler:     c.help,
			Description: "List commands",
			Hidden:      true,
		}),
	}
}

func (c *Console) menuCommand(req *router.Request) error {
	req.Session.Reset()
	if !req.Session.Authorized() {
		return req.Reply.Send(signInMessage("You are not signed in. Send /start."))
	}
	return req.Reply.Send(c.mainMenuMessage())
}

func (c *Console) cancel(req *router.Request) error {
	if req.Session.State().IsIdle() {
		return req.Reply.Send(ui.Text("Nothing to cancel."))
	}
	req.Session.Reset()
	return req.Reply.Send(ui.Text("Cancelled.").WithMenu((&ui.Menu{}).Add(homeButton)))
}

func (c *Console) help(req *router.Request) error {
	var b strings.Builder
	for _, cmd := range c.router.ListCommands(true) {
		b.WriteString(cmd.Name + " - " + cmd.Description + "\n")
	}
	return req.Reply.Send(ui.Text(strings.TrimSpace(b.String())))
}

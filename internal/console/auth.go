package console

import (
	"strings"

	"github.com/m3rciful/cloudbot/core/telegram/flow"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/core/telegram/ui"
	"github.com/m3rciful/cloudbot/internal/journal"
	"github.com/m3rciful/cloudbot/internal/present"
)

const (
	authModule  = "auth"
	loginAction = "login"

	fAccessKey = "ak"
	fSecretKey = "sk"
	fProject   = "project_id"
	fAccount   = "account_id"
)

func noSpaces(v string) error {
	if strings.ContainsAny(v, " \t\n") {
		return errNoSpaces
	}
	return nil
}

type hint string

func (h hint) Error() string { return string(h) }

const errNoSpaces = hint("The value must not contain spaces.")

// signInModule is the credential dialog. Keys are removed from the chat as
// soon as they are stored.
func (c *Console) signInModule() *flow.Module {
	login := &flow.Flow{
		Steps: []flow.Step{
			{Name: "access_key", Field: fAccessKey, Prompt: "Enter your access key (AK):", Secret: true, Validate: noSpaces},
			{Name: "secret_key", Field: fSecretKey, Prompt: "Enter your secret key (SK):", Secret: true, Validate: noSpaces},
			{Name: "project", Field: fProject, Prompt: "Enter the project id:", Validate: noSpaces},
			{Name: "account", Field: fAccount, Prompt: "Enter the account (domain) id:", Validate: noSpaces},
		},
		Finish: c.signIn,
	}
	return &flow.Module{
		Name:   authModule,
		Title:  "Sign in",
		Public: true,
		Actions: []flow.Action{
			{ID: loginAction, Title: "Enter credentials", Flow: login},
		},
	}
}

func (c *Console) signIn(req *router.Request, f state.Fields) (string, error) {
	req.Session.SetCredentials(state.Credentials{
		AccessKey: f.Get(fAccessKey),
		SecretKey: f.Get(fSecretKey),
		ProjectID: f.Get(fProject),
		AccountID: f.Get(fAccount),
	})
	if err := c.clients.Validate(req.Ctx, req.Session); err != nil {
		return "", err
	}
	return "", req.Reply.Send(c.mainMenuMessage())
}

// start shows the main menu to signed-in users and the credential dialog to
// everyone else. Credentials whose check failed on the network are checked
// again instead of asking for them.
func (c *Console) start(req *router.Request) error {
	req.Session.Reset()
	if _, ok := req.Session.Credentials(); ok && !req.Session.Authorized() {
		if err := c.clients.Validate(req.Ctx, req.Session); err != nil {
			if _, still := req.Session.Credentials(); still {
				return req.Reply.Send(ui.Text(describe(err)).WithMenu((&ui.Menu{}).Add(signInButton)))
			}
		}
	}
	if req.Session.Authorized() {
		return req.Reply.Send(c.mainMenuMessage())
	}
	login, ok := c.engine.Flow(authModule + "." + loginAction)
	if !ok {
		return req.Reply.Send(ui.Text("Sign in is unavailable."))
	}
	if err := req.Reply.Send(ui.Text("Welcome! Sign in with your cloud credentials.")); err != nil {
		return err
	}
	return c.engine.Start(req, login)
}

func historyText(entries []journal.Entry) string {
	ops := make([]present.Operation, 0, len(entries))
	for _, e := range entries {
		ops = append(ops, present.Operation{
			Module:     e.Module,
			Action:     e.Action,
			Outcome:    e.Outcome,
			ResourceID: e.ResourceID,
			Error:      e.ErrorMsg,
			At:         e.CreatedAt,
		})
	}
	return present.History(ops)
}

package scenario

import (
	"net/http"
	"regexp"

	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/webflow"
)

func healthScenarios() []Scenario {
	return []Scenario{
		basic("TC001", "Check the health of the API Notes service via API", API, func(e *Env) error {
			resp, err := e.Client().HealthCheck(e.Context())
			if err != nil {
				return err
			}
			c := outcome(e, "GET health-check", resp, http.StatusOK, notesapi.MsgHealthy)
			c.Assert().True(resp.Envelope.Success, "success")
			return c.Err()
		}),

		basic("TC390", "Check the health of the app website via WEB", WEB, func(e *Env) error {
			web, err := e.Web()
			if err != nil {
				return err
			}
			return web.Steps("home page").
				Goto("app").
				SeeURL(regexp.MustCompile(`.*/app/?$`)).
				SeeTitle(webflow.PageTitle).
				SeeText("welcome heading", web.Heading("Welcome to Notes App"), "Welcome to Notes App").
				SeeText("tagline", web.Heading("A Better Way To Track Your Tasks"), "A Better Way To Track Your Tasks").
				SeeEnabled("Login link", web.Link("Login")).
				SeeEnabled("Create an account link", web.Link("Create an account")).
				SeeVisible("Forgot your password link", web.Link("Forgot your password?")).
				SeeVisible("main", web.Page().GetByRole("main")).
				SeeVisible("contentinfo", web.Page().GetByRole("contentinfo")).
				SeeVisible("site heading", web.Heading("Practice Test Automation WebSite for Web UI and Rest API")).
				Err(e.Context())
		}),
	}
}

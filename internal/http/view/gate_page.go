package view

import (
	"bytes"
	"html/template"
	"time"
)

// GatePageData provides the dynamic fields of the gate and terminal pages.
type GatePageData struct {
	Title       string
	ShortID     string
	Status      string
	Reason      string
	HasPassword bool
	InviteOnly  bool
	SignInURL   string
	VerifyURL   string
	ContinueURL string
	ExpiresAt   *time.Time
	MaxClicks   *int
	ClickCount  int
}

var gatePageTmpl = template.Must(template.New("gate_page").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>{{if .Title}}{{.Title}}{{else}}LockYoLinks{{end}}</title>
	<style>
		:root {
			--bg: #0b0a12;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.14);
			--text: #ece8ff;
			--muted: #a9a3c5;
			--accent: #c084fc;
			--accent-strong: #a855f7;
			--danger: #f87171;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background: radial-gradient(circle at 80% 10%, #1e1b31, #07060c 60%);
			color: var(--text);
		}
		.card {
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 18px;
			padding: 32px;
			width: min(480px, 92vw);
			box-shadow: 0 45px 100px rgba(0,0,0,0.4);
			backdrop-filter: blur(18px);
		}
		h1 { font-size: 1.4rem; margin: 0 0 6px; }
		p { color: var(--muted); margin-top: 0; }
		.reason {
			margin: 20px 0;
			padding: 16px;
			border-radius: 12px;
			background: rgba(248, 113, 113, 0.08);
			border: 1px solid rgba(248, 113, 113, 0.3);
			color: var(--danger);
		}
		.restrictions {
			margin: 20px 0;
			padding: 16px;
			border-radius: 12px;
			background: rgba(192, 132, 252, 0.07);
			border: 1px solid rgba(192, 132, 252, 0.25);
		}
		.restrictions li { color: var(--muted); margin: 4px 0; }
		input[type=password] {
			width: 100%;
			height: 44px;
			border-radius: 10px;
			border: 1px solid var(--border);
			background: rgba(0,0,0,0.3);
			color: var(--text);
			padding: 0 14px;
			margin-bottom: 14px;
		}
		button, a.button {
			display: inline-flex;
			align-items: center;
			justify-content: center;
			padding: 0 26px;
			height: 46px;
			border: none;
			border-radius: 999px;
			background: linear-gradient(120deg, var(--accent), var(--accent-strong));
			color: #0b0a12;
			font-weight: 600;
			text-decoration: none;
			cursor: pointer;
		}
		#error { color: var(--danger); margin-top: 12px; display: none; }
	</style>
</head>
<body>
	<div class="card">
		{{if .Reason}}
		<h1>{{.Title}}</h1>
		<div class="reason">{{.Reason}}</div>
		<p>Short link <strong>/{{.ShortID}}</strong> cannot be opened.</p>
		{{else if .InviteOnly}}
		<h1>Invite Only Access</h1>
		<p>This link is restricted to specific email addresses.</p>
		{{if .SignInURL}}
		<p>You need to be signed in to access this link.</p>
		<a class="button" href="{{.SignInURL}}">Sign In</a>
		{{else}}
		<a class="button" href="{{.ContinueURL}}">Go to Destination</a>
		{{end}}
		{{else}}
		<h1>{{if .HasPassword}}Protected Link{{else}}Link Information{{end}}</h1>
		<p>{{if .HasPassword}}This link is protected.{{else}}This link has the following restrictions.{{end}}</p>

		{{if or .ExpiresAt .MaxClicks}}
		<div class="restrictions">
			<ul>
				{{if .ExpiresAt}}<li>Expires on {{.ExpiresAt.Format "Jan 2, 2006 15:04 MST"}}</li>{{end}}
				{{if .MaxClicks}}<li>Limited to {{.MaxClicks}} clicks (current: {{.ClickCount}})</li>{{end}}
			</ul>
		</div>
		{{end}}

		{{if .HasPassword}}
		<form id="gate" method="post" action="{{.VerifyURL}}">
			<input type="password" name="password" placeholder="Enter password" autofocus />
			<button type="submit">Unlock</button>
			<div id="error"></div>
		</form>
		<script>
			(function() {
				const form = document.getElementById("gate");
				const error = document.getElementById("error");
				form.addEventListener("submit", async (e) => {
					e.preventDefault();
					error.style.display = "none";
					const resp = await fetch(form.action, {
						method: "POST",
						headers: { "Content-Type": "application/json" },
						body: JSON.stringify({ password: form.password.value }),
					});
					if (resp.ok) {
						window.location.assign("/api/redirect/" + {{.ShortID}});
						return;
					}
					const body = await resp.json().catch(() => ({}));
					error.textContent = body.error || "Verification failed";
					error.style.display = "block";
				});
			})();
		</script>
		{{else}}
		<a class="button" href="{{.ContinueURL}}">Continue to destination</a>
		{{end}}
		{{end}}
	</div>
</body>
</html>
`))

// RenderGatePage expands the gate template with the provided data.
func RenderGatePage(data GatePageData) (string, error) {
	if data.Title == "" {
		data.Title = "LockYoLinks"
	}
	var buf bytes.Buffer
	if err := gatePageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

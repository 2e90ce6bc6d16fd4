package main

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/hubcli/hubcli/internal/recovery"
)

// stepText maps troubleshooting steps to the instructions shown to the user.
var stepText = map[recovery.Step]string{
	recovery.StepIdentifyProblem:     "Note the exact error message above",
	recovery.StepCheckNetwork:        "Check your internet connection",
	recovery.StepVerifyServiceAccess: "Verify https://github.com is reachable from this machine",
	recovery.StepCheckBrowser:        "Make sure a web browser is available",
	recovery.StepTryManualAuth:       "Run 'hubcli login' and follow the prompts",
	recovery.StepCheckPermissions:    "Confirm your account has access to the requested resource",
	recovery.StepClearCache:          "Run 'hubcli logout' to clear the stored credential",
	recovery.StepContactSupport:      "If the problem persists, open an issue with the log output",
}

// methodText maps alternative authentication methods to short descriptions.
var methodText = map[recovery.Method]string{
	recovery.MethodManualURL:           "open the verification URL manually in any browser",
	recovery.MethodQRCode:              "scan the QR code with a phone",
	recovery.MethodTokenPaste:          "paste a token obtained on another machine",
	recovery.MethodPersonalAccessToken: "use a personal access token from GitHub settings",
}

// guideDisplay renders a troubleshooting guide to the terminal. It satisfies
// recovery.Action; the actual fix is manual, so every attempt reports the
// steps as presented rather than completed.
type guideDisplay struct {
	out io.Writer
}

func newGuideDisplay(out io.Writer) *guideDisplay {
	return &guideDisplay{out: out}
}

func (g *guideDisplay) Recover(_ context.Context, guide recovery.Guide, _ recovery.Context) (recovery.Result, error) {
	fmt.Fprintf(g.out, "\n%s\n%s\n\n", guide.Title, guide.Description)

	for i, step := range guide.Steps {
		text, ok := stepText[step]
		if !ok {
			text = string(step)
		}

		fmt.Fprintf(g.out, "  %d. %s\n", i+1, text)
	}

	if len(guide.AlternativeMethods) > 0 {
		fmt.Fprintf(g.out, "\nAlternatives:\n")

		for _, m := range guide.AlternativeMethods {
			text, ok := methodText[m]
			if !ok {
				text = string(m)
			}

			fmt.Fprintf(g.out, "  - %s\n", text)
		}
	}

	fmt.Fprintf(g.out, "\nEstimated time: %s (difficulty: %s)\n",
		guide.EstimatedTime, guide.Difficulty)

	return recovery.Result{
		Success:  false,
		Feedback: "troubleshooting steps displayed, manual action required",
	}, nil
}

// osName reports the running platform for diagnostics.
func osName() string {
	return runtime.GOOS
}

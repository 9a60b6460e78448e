// Package wizard provides interactive prompts for CLI commands.
package wizard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
)

// Credential sources offered by the setup form.
const (
	AuthNone           = "none"
	AuthSecretManager  = "secret_manager"
	AuthServiceAccount = "service_account"
)

// Answers are the choices collected by PromptSetup.
type Answers struct {
	AngleMode             string
	Model                 string
	Auth                  string
	APIKeySecret          string
	ServiceAccountKeyFile string
	PromptVariables       map[string]string
	LangfuseEnabled       bool
}

// PromptSetup asks for the settings written by "nebulacalc init". Fields
// already set in defaults are offered as the starting values.
func PromptSetup(defaults Answers) (Answers, error) {
	a := defaults
	if a.Auth == "" {
		a.Auth = AuthNone
	}
	variables := formatVariables(a.PromptVariables)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Angle mode").
				Description("How sin, cos and tan read their argument").
				Options(
					huh.NewOption("Radians", "RAD"),
					huh.NewOption("Degrees", "DEG"),
				).
				Value(&a.AngleMode),

			huh.NewInput().
				Title("Completion model").
				Value(&a.Model),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Word problem credentials").
				Options(
					huh.NewOption("None (calculator only)", AuthNone),
					huh.NewOption("API key in Secret Manager", AuthSecretManager),
					huh.NewOption("Service account key file", AuthServiceAccount),
				).
				Value(&a.Auth),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Secret path").
				Description("projects/<project>/secrets/<name>, or a bare name").
				Value(&a.APIKeySecret).
				Validate(ValidateSecretPath),
		).WithHideFunc(func() bool { return a.Auth != AuthSecretManager }),
		huh.NewGroup(
			huh.NewInput().
				Title("Service account key file").
				Value(&a.ServiceAccountKeyFile).
				Validate(required("key file")),
		).WithHideFunc(func() bool { return a.Auth != AuthServiceAccount }),
		huh.NewGroup(
			huh.NewInput().
				Title("Prompt variables (key=value, comma-separated, optional)").
				Value(&variables).
				Validate(func(s string) error {
					_, err := ParseVariables(s)
					return err
				}),

			huh.NewConfirm().
				Title("Send traces to Langfuse?").
				Value(&a.LangfuseEnabled),
		),
	)

	if err := form.Run(); err != nil {
		return Answers{}, fmt.Errorf("prompt cancelled: %w", err)
	}

	vars, err := ParseVariables(variables)
	if err != nil {
		return Answers{}, err
	}
	a.PromptVariables = vars
	switch a.Auth {
	case AuthSecretManager:
		a.ServiceAccountKeyFile = ""
	case AuthServiceAccount:
		a.APIKeySecret = ""
	default:
		a.APIKeySecret, a.ServiceAccountKeyFile = "", ""
	}
	return a, nil
}

// ConfirmOverwrite asks before replacing an existing config file.
func ConfirmOverwrite(path string) (bool, error) {
	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s already exists. Overwrite it?", path)).
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

// ValidateSecretPath accepts a full Secret Manager resource name or a bare
// secret name.
func ValidateSecretPath(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("secret path is required")
	}
	if strings.ContainsAny(s, " \t") {
		return fmt.Errorf("secret path must not contain spaces")
	}
	if strings.HasPrefix(s, "projects/") {
		parts := strings.Split(s, "/")
		if len(parts) != 4 && len(parts) != 6 {
			return fmt.Errorf("expected projects/<project>/secrets/<name>[/versions/<version>], got %q", s)
		}
		if parts[2] != "secrets" || parts[1] == "" || parts[3] == "" {
			return fmt.Errorf("expected projects/<project>/secrets/<name>, got %q", s)
		}
		if len(parts) == 6 && (parts[4] != "versions" || parts[5] == "") {
			return fmt.Errorf("expected .../versions/<version>, got %q", s)
		}
	}
	return nil
}

// ParseVariables reads "key=value, key2=value2". Empty input yields nil.
func ParseVariables(s string) (map[string]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	vars := make(map[string]string)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q (want key=value)", p)
		}
		vars[key] = strings.TrimSpace(value)
	}
	if len(vars) == 0 {
		return nil, nil
	}
	return vars, nil
}

func formatVariables(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+vars[k])
	}
	return strings.Join(parts, ", ")
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

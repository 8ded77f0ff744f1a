package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// TerminalPrompt prints the consent URL and reads the authorization code
// from an interactive form.
func TerminalPrompt(ctx context.Context, authURL string) (string, error) {
	fmt.Printf("Go to the following link in your browser, then paste the authorization code:\n%s\n\n", authURL)
	var code string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Authorization code").
				Value(&code).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("code is required")
					}
					return nil
				}),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}
	return strings.TrimSpace(code), nil
}

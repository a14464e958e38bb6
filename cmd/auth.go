package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"studyplan/internal/api"
	"studyplan/internal/google"
	"studyplan/internal/session"
)

// prompt reads one trimmed line from stdin.
func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and store the session token.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Account email."},
			&cli.StringFlag{Name: "password", Usage: "Account password. Prompted when omitted.", EnvVars: []string{"STUDYPLAN_PASSWORD"}},
		},
		Action: withEnv(func(c *cli.Context, env *appEnv) error {
			reader := bufio.NewReader(os.Stdin)
			email := c.String("email")
			if email == "" {
				email = prompt(reader, "Email: ")
			}
			password := c.String("password")
			if password == "" {
				password = prompt(reader, "Password: ")
			}

			user, err := env.client.Login(c.Context, email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := switchAccount(c.Context, env, user.ID); err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (%s)\n", user.Username, user.Email)
			return nil
		}),
	}
}

// switchAccount scopes cached and offline data to account.
func switchAccount(ctx context.Context, env *appEnv, account string) error {
	st, err := env.store.SwitchAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to switch offline data to account: %w", err)
	}
	env.store = st
	env.cache.Purge()
	env.logger.Debug("Switched offline data account", "account", account)
	return nil
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and log in.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "password", Usage: "Prompted when omitted.", EnvVars: []string{"STUDYPLAN_PASSWORD"}},
		},
		Action: withEnv(func(c *cli.Context, env *appEnv) error {
			password := c.String("password")
			if password == "" {
				password = prompt(bufio.NewReader(os.Stdin), "Password: ")
			}
			user, err := env.client.Register(c.Context, c.String("email"), c.String("username"), password)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			if err := switchAccount(c.Context, env, user.ID); err != nil {
				return err
			}
			fmt.Printf("Registered and logged in as %s\n", user.Username)
			return nil
		}),
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "End the session and forget the stored token.",
		Action: withEnv(func(c *cli.Context, env *appEnv) error {
			if err := env.client.Logout(c.Context); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			if err := env.store.ForgetSnapshots(c.Context); err != nil {
				return err
			}
			if err := switchAccount(c.Context, env, ""); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the logged in user.",
		Action: withEnv(func(c *cli.Context, env *appEnv) error {
			user, err := env.client.Me(c.Context)
			if err != nil {
				if api.KindOf(err) == api.KindAuth {
					env.logger.Info("Stored session is no longer valid.", "file", env.tokens.Path())
				}
				return err
			}
			fmt.Printf("%s <%s>\n", user.Username, user.Email)
			return nil
		}),
	}
}

func googleAuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "google-auth",
		Usage: "Authenticate with a Google account for publishing.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "account", Usage: "Name for this account (e.g., 'personal', 'work')."},
		},
		Action: withEnv(func(c *cli.Context, env *appEnv) error {
			logger := env.logger
			logger.Info("Starting Google authentication flow.")

			gc := env.cfg.Google
			config, err := google.GetOAuthConfigForAuthFlow(gc.ClientID, gc.ClientSecret, gc.CredentialsFile)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			reader := bufio.NewReader(os.Stdin)
			authCode := prompt(reader, "Enter Authorization Code: ")

			token, err := google.TokenFromWeb(c.Context, config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			accountName := c.String("account")
			if accountName == "" {
				accountName = gc.Account
			}
			tokenFile := google.TokenPath(env.cfg.DataDir, accountName)
			if err := session.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		}),
	}
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/existflow/joyful/internal/app"
	"github.com/existflow/joyful/internal/apperr"
	"github.com/existflow/joyful/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
	Long:  `Log in, create an account or log out of the Joyful backend.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login with email and password",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logout and forget the stored session",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account with an emailed verification code",
	RunE:  runRegister,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the logged in user",
	RunE:  runWhoami,
}

func init() {
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(registerCmd)

	loginCmd.Flags().String("email", "", "Account email")
	registerCmd.Flags().String("email", "", "Account email")
}

const maxCodeAttempts = 3

// stdin is shared so buffered input is not lost between prompts
var stdin = bufio.NewReader(os.Stdin)

func readLine(label string) string {
	fmt.Print(label)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

func readPassword(label string) string {
	fmt.Print(label)
	if !term.IsTerminal(int(syscall.Stdin)) {
		line, _ := stdin.ReadString('\n')
		return strings.TrimRight(line, "\r\n")
	}
	passwordBytes, _ := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	return string(passwordBytes)
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		email = readLine("Email: ")
	}
	password := readPassword("Password: ")

	fmt.Println("🔄 Logging in...")
	st, err := a.Login(cmd.Context(), email, password)
	if err != nil {
		return err
	}

	fmt.Println("✅ Login successful!")
	printStatus(os.Stdout, st)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Session.IsAuthenticated(cmd.Context()) {
		fmt.Println("Not logged in.")
		return nil
	}

	if err := a.Logout(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("✅ Logged out successfully.")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		email = readLine("Email: ")
	}
	password := readPassword("Password: ")
	confirm := readPassword("Confirm Password: ")

	flow := a.NewRegistration()
	if err := sendCode(cmd, flow, email); err != nil {
		return err
	}

	// A wrong code keeps the challenge, so the user can retry or ask for a new one
	for attempt := 1; ; {
		code := readLine("Verification code (r to resend): ")
		if strings.EqualFold(code, "r") {
			if err := sendCode(cmd, flow, email); err != nil {
				fmt.Printf("⚠️  %v\n", err)
			}
			continue
		}

		fmt.Println("🔄 Creating account...")
		st, err := a.Register(cmd.Context(), flow, email, password, confirm, code)
		if err == nil {
			fmt.Println("✅ Account created and logged in!")
			printStatus(os.Stdout, st)
			return nil
		}
		if !retryable(err) || attempt >= maxCodeAttempts {
			return err
		}
		attempt++
		fmt.Printf("❌ %v\n", err)
	}
}

func sendCode(cmd *cobra.Command, flow *session.Registration, email string) error {
	fmt.Printf("🔄 Sending verification code to %s...\n", email)
	ch, err := flow.SendCode(cmd.Context(), email)
	if err != nil {
		return err
	}
	fmt.Println("📬 Verification code sent! Check your email.")
	if ch.DevCode != "" {
		fmt.Printf("🔑 Development code: %s\n", ch.DevCode)
	}
	return nil
}

// retryable reports whether asking for the code again can help
func retryable(err error) bool {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		return ve.Field == "verification_code"
	}
	return apperr.KindOf(err) == apperr.KindAuthentication && !apperr.IsConnectivity(err)
}

func printStatus(w io.Writer, st app.Status) {
	if st.Profile == nil {
		fmt.Fprintln(w, "Status:    Not logged in")
		return
	}
	user := st.Profile.Email
	if st.Profile.IsAdmin {
		user += " (admin)"
	}
	fmt.Fprintf(w, "User:      %s\n", user)
	switch {
	case st.EntitlementKnown:
		fmt.Fprintf(w, "Remaining: %s\n", st.Entitlement.Display())
	case st.EntitlementErr != nil:
		fmt.Fprintf(w, "Remaining: unknown (%v)\n", st.EntitlementErr)
	}
}

package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/filevault/vaultctl/internal/vault"
)

var (
	loginEmail string

	registerUsername  string
	registerEmail     string
	registerFirstName string
	registerLastName  string

	verifyEmail string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the signed-in user and saved filter",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long: `Create an account. The service emails a one-time code to the given
address; confirm it with 'vaultctl verify'.`,
	RunE: runRegister,
}

var verifyCmd = &cobra.Command{
	Use:   "verify [code]",
	Short: "Confirm the one-time code sent at registration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVerify,
}

var resendOTPCmd = &cobra.Command{
	Use:   "resend-otp",
	Short: "Send the registration code again",
	RunE:  runResendOTP,
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Change your password",
	RunE:  runPassword,
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email (prompted when omitted)")

	registerCmd.Flags().StringVar(&registerUsername, "username", "", "Username")
	registerCmd.Flags().StringVarP(&registerEmail, "email", "e", "", "Email address")
	registerCmd.Flags().StringVar(&registerFirstName, "first-name", "", "First name")
	registerCmd.Flags().StringVar(&registerLastName, "last-name", "", "Last name")

	verifyCmd.Flags().StringVarP(&verifyEmail, "email", "e", "", "Email the code was sent to (default: the one just registered)")
	resendOTPCmd.Flags().StringVarP(&verifyEmail, "email", "e", "", "Email to send the code to (default: the one just registered)")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd, verifyCmd, resendOTPCmd, passwordCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}

	email := loginEmail
	if email == "" {
		email = readLine("Email: ")
	}
	password, err := readSecret("Password: ")
	if err != nil {
		return err
	}

	res, err := newClient().Login(cmd.Context(), email, password)
	if err != nil {
		return err
	}

	sess.SetLogin(res, time.Now())
	if err := sess.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	role := ""
	if res.IsAdmin {
		role = " (administrator)"
	}
	fmt.Printf("✓ Logged in as %s%s\n", res.Username, role)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	sess.Clear()
	if err := sess.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	fmt.Println("Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	u, ok := sess.User()
	if !ok {
		return vault.RequireIdentity("whoami", vault.Identity{})
	}

	fmt.Printf("Username: %s\n", u.Username)
	fmt.Printf("Name:     %s %s\n", u.FirstName, u.LastName)
	fmt.Printf("Email:    %s\n", u.Email)
	fmt.Printf("User ID:  %s\n", u.UserID)
	if u.IsAdmin {
		fmt.Println("Role:     administrator")
	}
	if !u.LoggedInAt.IsZero() {
		fmt.Printf("Since:    %s\n", humanize.Time(u.LoggedInAt))
	}
	return nil
}

func prompted(value, prompt string) string {
	if value != "" {
		return value
	}
	return readLine(prompt)
}

func runRegister(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}

	reg := vault.Registration{
		Username:  prompted(registerUsername, "Username: "),
		Email:     prompted(registerEmail, "Email: "),
		FirstName: prompted(registerFirstName, "First name: "),
		LastName:  prompted(registerLastName, "Last name: "),
	}
	if reg.Password, err = readSecret("Password: "); err != nil {
		return err
	}
	confirmPassword, err := readSecret("Confirm password: ")
	if err != nil {
		return err
	}

	msg, err := newClient().Register(cmd.Context(), reg, confirmPassword)
	if err != nil {
		return err
	}

	sess.SetPendingEmail(reg.Email)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Printf("✓ %s\n", msg)
	fmt.Println("Check your email and run 'vaultctl verify <code>'.")
	return nil
}

func pendingEmail() (string, error) {
	if verifyEmail != "" {
		return verifyEmail, nil
	}
	sess, err := openSession()
	if err != nil {
		return "", err
	}
	if email := sess.PendingEmail(); email != "" {
		return email, nil
	}
	return readLine("Email: "), nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	email, err := pendingEmail()
	if err != nil {
		return err
	}
	var code string
	if len(args) > 0 {
		code = args[0]
	} else {
		code = readLine("Code: ")
	}

	msg, err := newClient().VerifyOTP(cmd.Context(), email, code)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %s\n", msg)
	fmt.Println("You can now run 'vaultctl login'.")
	return nil
}

func runResendOTP(cmd *cobra.Command, args []string) error {
	email, err := pendingEmail()
	if err != nil {
		return err
	}
	msg, err := newClient().ResendOTP(cmd.Context(), email)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %s\n", msg)
	return nil
}

func runPassword(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	id := sess.Identity()
	if err := vault.RequireIdentity("change password", id); err != nil {
		return err
	}

	current, err := readSecret("Current password: ")
	if err != nil {
		return err
	}
	next, err := readSecret("New password: ")
	if err != nil {
		return err
	}
	again, err := readSecret("Confirm new password: ")
	if err != nil {
		return err
	}

	msg, err := newClient().UpdatePassword(cmd.Context(), id, current, next, again)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %s\n", msg)
	return nil
}

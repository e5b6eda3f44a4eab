package vault

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// minPasswordLength is the shortest new password the account settings accept.
const minPasswordLength = 6

type messageBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// postAuth sends a JSON body to an account endpoint. These endpoints
// always answer with JSON, so a body that does not parse is reported as
// malformed whatever the status.
func (c *Client) postAuth(ctx context.Context, op, p string, userID string, in any, out any) error {
	body, err := jsonBody(in)
	if err != nil {
		return err
	}
	r := request{
		op:          op,
		method:      http.MethodPost,
		path:        p,
		body:        body,
		contentType: "application/json",
	}
	if userID != "" {
		r.header = userHeader(userID)
	}

	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if !json.Valid(resp.body) {
		return &MalformedResponseError{
			Op:         op,
			StatusCode: resp.status,
			Body:       string(resp.body),
			Err:        errNonJSON,
		}
	}
	return decode(op, resp, out)
}

var errNonJSON = errors.New("server returned a non-JSON response")

// Login exchanges credentials for the account's identity.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if email == "" || password == "" {
		return LoginResult{}, &PreconditionError{Op: "login", Reason: "please fill in all fields"}
	}
	in := map[string]string{"email": email, "password": password}

	var out LoginResult
	if err := c.postAuth(ctx, "login", loginPath, "", in, &out); err != nil {
		return LoginResult{}, err
	}
	return out, nil
}

// ValidateRegistration checks a sign-up form before it is sent.
func ValidateRegistration(reg Registration, confirmPassword string) error {
	if reg.Username == "" || reg.Email == "" || reg.Password == "" ||
		reg.FirstName == "" || reg.LastName == "" || confirmPassword == "" {
		return &PreconditionError{Op: "register", Reason: "please fill in all fields"}
	}
	if reg.Password != confirmPassword {
		return &PreconditionError{Op: "register", Reason: "passwords do not match"}
	}
	return nil
}

// Register creates an account. The server answers with a message and
// emails a one-time code for verification.
func (c *Client) Register(ctx context.Context, reg Registration, confirmPassword string) (string, error) {
	if err := ValidateRegistration(reg, confirmPassword); err != nil {
		return "", err
	}
	var out messageBody
	if err := c.postAuth(ctx, "register", registerPath, "", reg, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// VerifyOTP confirms an email address with the code sent to it.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	if email == "" || otp == "" {
		return "", &PreconditionError{Op: "verify email", Reason: "email or OTP is missing"}
	}
	in := map[string]string{"email": email, "otp": otp}

	var out messageBody
	if err := c.postAuth(ctx, "verify email", verifyOTPPath, "", in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ResendOTP asks for a new verification code.
func (c *Client) ResendOTP(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", &PreconditionError{Op: "resend OTP", Reason: "email is missing"}
	}
	in := map[string]string{"email": email}

	var out messageBody
	if err := c.postAuth(ctx, "resend OTP", resendOTPPath, "", in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ValidatePasswordChange checks the password form before it is sent.
func ValidatePasswordChange(current, next, confirm string) error {
	if current == "" || next == "" || confirm == "" {
		return &PreconditionError{Op: "update password", Reason: "all password fields are required"}
	}
	if next != confirm {
		return &PreconditionError{Op: "update password", Reason: "new password and confirmation do not match"}
	}
	if len(next) < minPasswordLength {
		return &PreconditionError{Op: "update password", Reason: "new password must be at least 6 characters long"}
	}
	return nil
}

// UpdatePassword changes the signed-in user's password.
func (c *Client) UpdatePassword(ctx context.Context, id Identity, current, next, confirm string) (string, error) {
	if err := RequireIdentity("update password", id); err != nil {
		return "", err
	}
	if err := ValidatePasswordChange(current, next, confirm); err != nil {
		return "", err
	}
	in := map[string]string{"current_password": current, "new_password": next}

	var out messageBody
	if err := c.postAuth(ctx, "update password", passwordPath, id.UserID, in, &out); err != nil {
		return "", err
	}
	if out.Message == "" {
		out.Message = "Password updated successfully"
	}
	return out.Message, nil
}

package api

import "strings"

// ValidateSignup checks a SignupRequest and returns a normalized copy. The
// company name, email and display name are trimmed; the password is taken
// verbatim. It returns an *APIError describing the first failure.
func ValidateSignup(req SignupRequest) (SignupRequest, *APIError) {
	out := SignupRequest{
		CompanyName: strings.TrimSpace(req.CompanyName),
		Email:       NormalizeEmail(strings.TrimSpace(req.Email)),
		Password:    req.Password,
		DisplayName: strings.TrimSpace(req.DisplayName),
	}

	if out.CompanyName == "" || out.Email == "" || out.Password == "" {
		return SignupRequest{}, NewInvalidRequestError("",
			"companyName, email and password are required")
	}

	if out.DisplayName == "" {
		out.DisplayName = out.Email
	}

	return out, nil
}

/*
Package authsdk provides a client SDK for the Bookly identity API.

# Overview

The package is organised around two types:

  - SDKClient: unauthenticated operations (sign-up, sign-in, health, hello)
  - Session: operations on behalf of a signed-in user

	client := authsdk.NewSDKClient("http://localhost:8080")

	_, err := client.SignUp(ctx, authsdk.SignUpRequest{
		Name:     "Example",
		Email:    "example@mail.ai",
		Password: "Example@123",
	})

	session, err := client.SignIn(ctx, authsdk.SignInRequest{
		Email:    "example@mail.ai",
		Password: "Example@123",
	})

# Profile Setup and Refresh Tokens

A refresh token is only issued once the user's profile is complete (name,
email, username and gender all set). A freshly registered user therefore
gets an access-only session. Complete the profile, then sign in again:

	_, err = session.UpdateProfile(ctx, authsdk.UpdateProfileRequest{
		Name:     "Example",
		Username: "example",
		Gender:   "Other",
	})

	session, err = client.SignIn(ctx, authsdk.SignInRequest{
		Username: "example",
		Password: "Example@123",
	})

# Automatic Token Refresh

When a session holds a refresh token, every Session method checks the access
token's expiry first and rotates the pair when it is within
SDKClient.RefreshBuffer of expiring. Rotation revokes the previous refresh
token server side, so a Session must not be cloned across processes.

# Error Handling

Failed calls return *APIError with the HTTP status and the server message:

	if _, err := client.SignUp(ctx, req); authsdk.IsConflict(err) {
		// email already registered
	}

# Thread Safety

Sessions are safe for concurrent use. Token rotation happens under a write
lock so concurrent callers never present the same refresh token twice.
*/
package authsdk

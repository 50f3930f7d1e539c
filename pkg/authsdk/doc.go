/*
Package authsdk is the Go client for the clubfig authentication service and
holds the wire types shared by the server's handlers.

Tenants are addressed by host, so the base URL carries the tenant
subdomain:

	client := authsdk.NewSDKClient("https://acme.clubfig.io")

	session, err := client.Login(ctx, "ada@acme.io", "correct horse")
	if err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			// wrong credentials or locked account
		}
		return err
	}

	me, err := session.Me(ctx)

The refresh token never leaves the client's cookie jar. A Session refreshes
its access token transparently once it is within 30 seconds of expiry, and
Logout revokes every refresh token the user holds.
*/
package authsdk

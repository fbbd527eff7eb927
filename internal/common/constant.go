package common

// AccessTokenHeaderName is the gRPC metadata key that may carry a raw session
// token.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName carries "Bearer <token>".
const AuthorizationHeaderName = "authorization"

// BearerPrefix is the scheme prefix expected in the authorization header.
const BearerPrefix = "Bearer "

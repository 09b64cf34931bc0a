package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName is the HTTP/gRPC header carrying "Bearer <token>".
const AuthorizationHeaderName = "authorization"

// BearerTokenType is the token_type returned to clients.
const BearerTokenType = "Bearer"

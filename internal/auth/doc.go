// Package auth handles operator bearer tokens.
//
// # Console side
//
// The console never verifies its own token. It finds one with Resolve
// (PETSHOP_TOKEN, then the token file), reads the operator id and expiry
// with Inspect, and saves new tokens after a login:
//
//	file, _ := auth.NewTokenFile(cfg.Auth.TokenFile)
//	token, source, err := auth.Resolve(os.Getenv, file)
//	claims, err := auth.Inspect(token)
//
// # Backend side
//
// The fake shop backend signs HS256 tokens with JWTVerifier.Generate and
// guards its routes with HTTPAuthMiddleware, which accepts the token from
// the Authorization header or, for WebSocket handshakes, the "token" query
// parameter. RequireAdminHTTP limits a route to operator roles.
package auth

// Package users provides a registration and authentication backend: JWT
// issuance and verification, a bcrypt-backed credential store, and a
// stateless JSON API with a per-request bearer filter.
//
// Token lifecycle:
//   - TokenService signs HS256 tokens asserting the account email as subject
//     and verifies them into AuthClaims. IsValidFor re-checks a raw token
//     against a specific subject, which the request filter uses to pin a
//     token to the identity it resolved.
//   - Auther orchestrates login: credentials are verified through an
//     IdentityProvider, decorated claims are signed, and activity events are
//     emitted for the audit trail.
//
// Request filtering:
//   - middleware/authware installs a soft bearer filter. Requests without a
//     usable Authorization value continue anonymously; tokens that fail
//     verification are rejected with a 401 and a fixed plain-text body.
//     authware.Protected hard-gates routes that require a principal.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and the
//     registration handler for login and registration events. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking authentication.
//
// Claims decoration:
//   - ClaimsDecorator is invoked before JWTs are signed. Decorators may
//     enrich the extension mapping while registered claims (sub, iss, aud,
//     exp, jti) remain immutable.
package users

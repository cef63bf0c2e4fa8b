package sandbox

import (
	"context"
	"net/http"
	"strings"

	"StoreClient/pkg/kit"
)

type ctxKey string

const customerKey ctxKey = "customer"

type principal struct {
	CustomerID int64
	TokenID    string
}

func principalFrom(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(customerKey).(principal)
	return p, ok
}

// AuthJWT rejects requests without a valid, unrevoked bearer token with the
// 401 the storefront uses to signal an expired session.
func AuthJWT(jwt *TokenMaker, store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				kit.WriteFail(w, http.StatusUnauthorized, "Unauthenticated.", nil)
				return
			}

			claims, err := jwt.Parse(strings.TrimPrefix(authz, "Bearer "))
			if err != nil || claims.CustomerID == 0 || store.Revoked(claims.ID) {
				kit.WriteFail(w, http.StatusUnauthorized, "Unauthenticated.", nil)
				return
			}

			ctx := context.WithValue(r.Context(), customerKey, principal{CustomerID: claims.CustomerID, TokenID: claims.ID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package middleware

import (
	"net/http"
	"strconv"

	"deskgoo-pos/internal/auth"
	"deskgoo-pos/internal/logger"
	"deskgoo-pos/internal/utils"

	"go.uber.org/zap"
)

// AuthOptions configures AuthMiddleware.
type AuthOptions struct {
	Secret []byte
	// Required rejects anonymous requests with 401. When false a missing or
	// bad token only leaves the request anonymous.
	Required    bool
	InternalKey string
	// Public paths skip authentication entirely.
	Public []string
}

const internalHeader = "X-Service-Auth"

func AuthMiddleware(opts AuthOptions) func(http.Handler) http.Handler {
	public := make(map[string]struct{}, len(opts.Public))
	for _, p := range opts.Public {
		public[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			log := logger.FromCtx(ctx).With(zap.String("layer", "middleware"))

			if isInternal(r, opts.InternalKey) {
				next.ServeHTTP(w, r.WithContext(utils.WithInternalRequest(ctx)))
				return
			}

			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				if opts.Required {
					log.Warn("missing access token", zap.String("path", r.URL.Path))
					utils.WriteJSONError(w, "authentication required", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(opts.Secret, tokenStr)
			if err != nil {
				log.Warn("invalid access token", zap.String("path", r.URL.Path), zap.Error(err))
				if opts.Required {
					utils.WriteJSONError(w, "invalid or expired token", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx = utils.SetStaffContext(ctx, claims.StaffID, claims.Name, claims.Role)
			ctx = logger.WithStaffID(ctx, strconv.FormatInt(claims.StaffID, 10))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isInternal(r *http.Request, key string) bool {
	return key != "" && r.Header.Get(internalHeader) == key
}

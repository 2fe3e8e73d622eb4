package handlers

import (
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// ParseDealerID extracts the dealer ID from the request path.
// Returns the ID and true on success, or 0 and false after writing a
// 400 {"status":400,"message":"Bad Request"} response. IDs must be positive integers.
// Expects path parameter: dealer_id
func ParseDealerID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int, bool) {
	return parsePositiveInt(w, r, "dealer_id", logger)
}

// parsePositiveInt is the internal helper that does the actual parsing work.
func parsePositiveInt(w http.ResponseWriter, r *http.Request, pathParam string, logger *zap.Logger) (int, bool) {
	idStr := r.PathValue(pathParam)
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		if err := StatusResponse(w, http.StatusBadRequest, MsgBadRequest); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return id, true
}

// clientIP returns the caller's address without the port. RealIP has already
// replaced RemoteAddr with the forwarded address when a proxy header was sent.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

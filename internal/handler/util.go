package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// getHeader performs a case-insensitive header lookup on the proxy request.
func getHeader(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// jsonResponse marshals v into a proxy response with the given status code.
func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(v)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// errorResponse builds a JSON error body of the form {"error": "..."}.
func errorResponse(status int, message string) events.APIGatewayProxyResponse {
	return jsonResponse(status, map[string]string{"error": message})
}

// withCookie returns a copy of resp carrying a Set-Cookie header.
func withCookie(resp events.APIGatewayProxyResponse, cookie string) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers["Set-Cookie"] = cookie
	return resp
}

// parseBody decodes the request body into dst. A non-JSON body yields a
// 400 response and ok=false.
func parseBody(req events.APIGatewayProxyRequest, dst any) (events.APIGatewayProxyResponse, bool) {
	if err := json.Unmarshal([]byte(req.Body), dst); err != nil {
		return errorResponse(http.StatusBadRequest, "Invalid request body"), false
	}
	return events.APIGatewayProxyResponse{}, true
}

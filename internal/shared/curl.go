// Utilities for parsing cURL commands.
//
// Collaborators share storage access by copying a request from browser
// DevTools ("Copy as cURL"); the bearer token and endpoint are lifted from it.
package shared

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// CurlRequest represents headers and the request URL parsed from a cURL command.
type CurlRequest struct {
	URL     string
	Headers map[string]string
}

var (
	curlHeaderRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlURLRegex    = regexp.MustCompile(`curl\s+(?:-\S+\s+)*'(https?://[^']+)'|curl\s+(?:-\S+\s+)*"(https?://[^"]+)"|curl\s+(?:-\S+\s+)*(https?://\S+)`)
)

// ParseCurlFile reads a .sh file containing a cURL command and extracts the request.
func ParseCurlFile(filepath string) (*CurlRequest, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string and extracts the URL and headers.
func ParseCurlCommand(data []byte) (*CurlRequest, error) {
	curlCmd := string(data)
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	headers := make(map[string]string)

	for _, match := range curlHeaderRegex.FindAllStringSubmatch(curlCmd, -1) {
		headerLine := match[1]
		if headerLine == "" {
			headerLine = match[2]
		}

		parts := strings.SplitN(headerLine, ":", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	var requestURL string
	if m := curlURLRegex.FindStringSubmatch(curlCmd); m != nil {
		for _, group := range m[1:] {
			if group != "" {
				requestURL = group
				break
			}
		}
	}

	if len(headers) == 0 && requestURL == "" {
		return nil, fmt.Errorf("no request found in curl command")
	}

	return &CurlRequest{URL: requestURL, Headers: headers}, nil
}

// BearerToken returns the bearer token from the Authorization header, or "" when absent.
func (c *CurlRequest) BearerToken() string {
	for key, value := range c.Headers {
		if strings.EqualFold(key, "authorization") {
			if token, ok := strings.CutPrefix(value, "Bearer "); ok {
				return token
			}
		}
	}
	return ""
}

// BaseURL strips the object path from the request URL, leaving the endpoint.
//
// A captured request addresses ".../projects/{id}/..."; everything before
// "/projects/" is the reusable base.
func (c *CurlRequest) BaseURL() string {
	if c.URL == "" {
		return ""
	}
	if idx := strings.Index(c.URL, "/projects/"); idx > 0 {
		return c.URL[:idx]
	}
	return strings.TrimSuffix(c.URL, "/")
}

package middleware

import (
	"maps"
	"strconv"
	"strings"

	"github.com/dmitrymomot/krustie/core/handler"
)

// SecurityHeadersConfig configures the security headers middleware.
// Empty fields are not emitted.
type SecurityHeadersConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(req *handler.Request) bool

	// ContentTypeOptions controls X-Content-Type-Options header
	ContentTypeOptions string

	// FrameOptions controls X-Frame-Options header (DENY or SAMEORIGIN)
	FrameOptions string

	// XSSProtection controls X-XSS-Protection header
	XSSProtection string

	// StrictTransportSecurity controls Strict-Transport-Security header
	StrictTransportSecurity string

	// ContentSecurityPolicy controls Content-Security-Policy header
	ContentSecurityPolicy string

	// ReferrerPolicy controls Referrer-Policy header
	ReferrerPolicy string

	// PermissionsPolicy controls Permissions-Policy header
	PermissionsPolicy string

	// CrossOriginOpenerPolicy controls Cross-Origin-Opener-Policy header
	CrossOriginOpenerPolicy string

	// CrossOriginEmbedderPolicy controls Cross-Origin-Embedder-Policy header
	CrossOriginEmbedderPolicy string

	// CrossOriginResourcePolicy controls Cross-Origin-Resource-Policy header
	CrossOriginResourcePolicy string

	// OriginAgentCluster controls Origin-Agent-Cluster header
	OriginAgentCluster string

	// DNSPrefetchControl controls X-DNS-Prefetch-Control header
	DNSPrefetchControl string

	// DownloadOptions controls X-Download-Options header
	DownloadOptions string

	// PermittedCrossDomainPolicies controls X-Permitted-Cross-Domain-Policies header
	PermittedCrossDomainPolicies string

	// HidePoweredBy removes any X-Powered-By header set upstream
	HidePoweredBy bool

	// CustomHeaders allows adding additional custom security headers
	CustomHeaders map[string]string

	// IsDevelopment disables HSTS and relaxes some policies for development
	IsDevelopment bool
}

// Referrer-Policy values.
const (
	ReferrerNoReferrer                  = "no-referrer"
	ReferrerNoReferrerWhenDowngrade     = "no-referrer-when-downgrade"
	ReferrerOrigin                      = "origin"
	ReferrerOriginWhenCrossOrigin       = "origin-when-cross-origin"
	ReferrerSameOrigin                  = "same-origin"
	ReferrerStrictOrigin                = "strict-origin"
	ReferrerStrictOriginWhenCrossOrigin = "strict-origin-when-cross-origin"
	ReferrerUnsafeURL                   = "unsafe-url"
)

// ReferrerPolicies joins a fallback list of referrer policies. Browsers use
// the last value they understand.
func ReferrerPolicies(policies ...string) string {
	return strings.Join(policies, ", ")
}

// StrictTransportSecurity builds a Strict-Transport-Security value.
func StrictTransportSecurity(maxAge int, includeSubDomains, preload bool) string {
	var b strings.Builder
	b.WriteString("max-age=")
	b.WriteString(strconv.Itoa(maxAge))
	if includeSubDomains {
		b.WriteString("; includeSubDomains")
	}
	if preload {
		b.WriteString("; preload")
	}
	return b.String()
}

// CSPDirective is one Content-Security-Policy directive. A directive without
// sources, such as upgrade-insecure-requests, is emitted by name only.
type CSPDirective struct {
	Name    string
	Sources []string
}

// CSP is an ordered list of directives.
type CSP []CSPDirective

// DefaultCSP is the policy applied by DefaultSecurity.
var DefaultCSP = CSP{
	{Name: "default-src", Sources: []string{"'self'"}},
	{Name: "base-uri", Sources: []string{"'self'"}},
	{Name: "font-src", Sources: []string{"'self'", "https:", "data:"}},
	{Name: "form-action", Sources: []string{"'self'"}},
	{Name: "frame-ancestors", Sources: []string{"'self'"}},
	{Name: "img-src", Sources: []string{"'self'", "data:"}},
	{Name: "object-src", Sources: []string{"'none'"}},
	{Name: "script-src", Sources: []string{"'self'"}},
	{Name: "script-src-attr", Sources: []string{"'none'"}},
	{Name: "style-src", Sources: []string{"'self'", "https:", "'unsafe-inline'"}},
	{Name: "upgrade-insecure-requests"},
}

// With returns a copy of c with the sources of name replaced, or the
// directive appended when c does not have it.
func (c CSP) With(name string, sources ...string) CSP {
	out := make(CSP, 0, len(c)+1)
	replaced := false
	for _, d := range c {
		if d.Name == name {
			d = CSPDirective{Name: name, Sources: sources}
			replaced = true
		}
		out = append(out, d)
	}
	if !replaced {
		out = append(out, CSPDirective{Name: name, Sources: sources})
	}
	return out
}

// String renders the policy as a header value.
func (c CSP) String() string {
	parts := make([]string, 0, len(c))
	for _, d := range c {
		if len(d.Sources) == 0 {
			parts = append(parts, d.Name)
			continue
		}
		parts = append(parts, d.Name+" "+strings.Join(d.Sources, " "))
	}
	return strings.Join(parts, "; ")
}

// Predefined security configurations
var (
	// DefaultSecurity mirrors the defaults of the helmet family of middleware.
	DefaultSecurity = SecurityHeadersConfig{
		ContentTypeOptions:           "nosniff",
		FrameOptions:                 "SAMEORIGIN",
		StrictTransportSecurity:      StrictTransportSecurity(15552000, true, false),
		ContentSecurityPolicy:        DefaultCSP.String(),
		ReferrerPolicy:               ReferrerNoReferrer,
		CrossOriginOpenerPolicy:      "same-origin",
		CrossOriginEmbedderPolicy:    "require-corp",
		CrossOriginResourcePolicy:    "same-origin",
		OriginAgentCluster:           "?1",
		DNSPrefetchControl:           "off",
		DownloadOptions:              "noopen",
		PermittedCrossDomainPolicies: "none",
		HidePoweredBy:                true,
	}

	// StrictSecurity provides maximum security with strict policies.
	StrictSecurity = SecurityHeadersConfig{
		ContentTypeOptions:           "nosniff",
		FrameOptions:                 "DENY",
		XSSProtection:                "1; mode=block",
		StrictTransportSecurity:      StrictTransportSecurity(63072000, true, true),
		ContentSecurityPolicy:        "default-src 'none'; script-src 'self'; style-src 'self'; img-src 'self'; font-src 'self'; connect-src 'self'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'",
		ReferrerPolicy:               ReferrerNoReferrer,
		PermissionsPolicy:            "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()",
		CrossOriginOpenerPolicy:      "same-origin",
		CrossOriginEmbedderPolicy:    "require-corp",
		CrossOriginResourcePolicy:    "same-origin",
		OriginAgentCluster:           "?1",
		DNSPrefetchControl:           "off",
		DownloadOptions:              "noopen",
		PermittedCrossDomainPolicies: "none",
		HidePoweredBy:                true,
	}

	// BalancedSecurity provides good security with compatibility.
	BalancedSecurity = SecurityHeadersConfig{
		ContentTypeOptions:        "nosniff",
		FrameOptions:              "SAMEORIGIN",
		XSSProtection:             "1; mode=block",
		StrictTransportSecurity:   StrictTransportSecurity(31536000, true, false),
		ContentSecurityPolicy:     "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self' data:",
		ReferrerPolicy:            ReferrerStrictOriginWhenCrossOrigin,
		PermissionsPolicy:         "geolocation=(), microphone=(), camera=()",
		CrossOriginOpenerPolicy:   "same-origin-allow-popups",
		CrossOriginResourcePolicy: "cross-origin",
		HidePoweredBy:             true,
	}

	// RelaxedSecurity provides basic security for maximum compatibility.
	RelaxedSecurity = SecurityHeadersConfig{
		ContentTypeOptions: "nosniff",
		XSSProtection:      "1; mode=block",
		ReferrerPolicy:     ReferrerStrictOriginWhenCrossOrigin,
	}

	// DevelopmentSecurity provides minimal security for local development.
	// WARNING: Never use in production.
	DevelopmentSecurity = SecurityHeadersConfig{
		ContentTypeOptions: "nosniff",
		XSSProtection:      "1; mode=block",
		ReferrerPolicy:     ReferrerStrictOriginWhenCrossOrigin,
		IsDevelopment:      true,
	}
)

// SecurityHeaders creates a security headers middleware with DefaultSecurity.
//
// Headers are written onto the response as it stands when the middleware runs.
// Attached after the application, as with Compress, it also overrides values
// set by handlers and strips X-Powered-By:
//
//	root.Mount("/", app)
//	root.Use(middleware.SecurityHeaders())
func SecurityHeaders() handler.Middleware {
	return SecurityHeadersWithConfig(DefaultSecurity)
}

// SecurityHeadersStrict creates a security headers middleware with strict configuration.
// It may break third-party widgets, inline scripts and iframe embedding.
func SecurityHeadersStrict() handler.Middleware {
	return SecurityHeadersWithConfig(StrictSecurity)
}

// SecurityHeadersRelaxed creates a security headers middleware with relaxed configuration.
func SecurityHeadersRelaxed() handler.Middleware {
	return SecurityHeadersWithConfig(RelaxedSecurity)
}

// SecurityHeadersWithConfig creates a security headers middleware with custom configuration.
// For most cases, start from one of the predefined configurations:
//
//	cfg := middleware.DefaultSecurity
//	cfg.ContentSecurityPolicy = middleware.DefaultCSP.
//		With("script-src", "'self'", "https://cdn.jsdelivr.net").
//		String()
//	r.Use(middleware.SecurityHeadersWithConfig(cfg))
func SecurityHeadersWithConfig(cfg SecurityHeadersConfig) handler.Middleware {
	if cfg.IsDevelopment {
		cfg.StrictTransportSecurity = ""
	}

	// Pre-build headers map to avoid repeated checks
	headers := make(map[string]string)
	set := func(key, value string) {
		if value != "" {
			headers[key] = value
		}
	}
	set("X-Content-Type-Options", cfg.ContentTypeOptions)
	set("X-Frame-Options", cfg.FrameOptions)
	set("X-XSS-Protection", cfg.XSSProtection)
	set("Strict-Transport-Security", cfg.StrictTransportSecurity)
	set("Content-Security-Policy", cfg.ContentSecurityPolicy)
	set("Referrer-Policy", cfg.ReferrerPolicy)
	set("Permissions-Policy", cfg.PermissionsPolicy)
	set("Cross-Origin-Opener-Policy", cfg.CrossOriginOpenerPolicy)
	set("Cross-Origin-Embedder-Policy", cfg.CrossOriginEmbedderPolicy)
	set("Cross-Origin-Resource-Policy", cfg.CrossOriginResourcePolicy)
	set("Origin-Agent-Cluster", cfg.OriginAgentCluster)
	set("X-DNS-Prefetch-Control", cfg.DNSPrefetchControl)
	set("X-Download-Options", cfg.DownloadOptions)
	set("X-Permitted-Cross-Domain-Policies", cfg.PermittedCrossDomainPolicies)

	maps.Copy(headers, cfg.CustomHeaders)

	return handler.MiddlewareFunc(func(req *handler.Request, res *handler.Response) handler.Result {
		if cfg.Skip != nil && cfg.Skip(req) {
			return handler.Next
		}

		res.SetHeaders(headers)
		if cfg.HidePoweredBy {
			res.RemoveHeader("X-Powered-By")
		}
		return handler.Next
	})
}

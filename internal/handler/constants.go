package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteSuffixNew is the suffix for "new" routes.
	RouteSuffixNew = "/new"

	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"
	// RouteParamSlug is the slug parameter pattern.
	RouteParamSlug = "/{slug}"

	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteEvents is the public events route.
	RouteEvents = "/events"

	// RouteAdminEvents is the events admin route.
	RouteAdminEvents = "/events"
	// RouteAdminAudit is the audit log admin route.
	RouteAdminAudit = "/audit"
)

// Redirect targets.
const (
	redirectLogin       = "/login"
	redirectAdmin       = "/admin"
	redirectAdminEvents = "/admin/events"
)

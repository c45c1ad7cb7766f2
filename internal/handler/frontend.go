// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler contains HTTP handlers for the web frontend,
// authentication and the admin area.
package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evently/eventline/internal/cache"
	"github.com/evently/eventline/internal/middleware"
	"github.com/evently/eventline/internal/model"
	"github.com/evently/eventline/internal/render"
	"github.com/evently/eventline/internal/store"
	"github.com/evently/eventline/internal/util"
)

// upcomingEventsLimit is how many events the homepage teaser shows.
const upcomingEventsLimit = 3

// FrontendHandler handles public-facing routes.
type FrontendHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
	events   *cache.EventCache
}

// NewFrontendHandler creates a new FrontendHandler.
func NewFrontendHandler(db *sql.DB, renderer *render.Renderer, events *cache.EventCache) *FrontendHandler {
	return &FrontendHandler{
		queries:  store.New(db),
		renderer: renderer,
		events:   events,
	}
}

// Highlight is one selling point shown on the homepage.
type Highlight struct {
	Title string
	Text  string
}

// Testimonial is a quote shown on the homepage.
type Testimonial struct {
	Quote  string
	Author string
}

// HomeData holds data for the homepage sections.
type HomeData struct {
	Highlights     []Highlight
	UpcomingEvents []model.Event
	Testimonials   []Testimonial
}

// homeHighlights and homeTestimonials are fixed marketing copy.
var homeHighlights = []Highlight{
	{Title: "Curated events", Text: "Hand-picked meetups, conferences and festivals worth your weekend."},
	{Title: "No noise", Text: "Every listing has a date, a place and a reason to go. Nothing else."},
	{Title: "Sign in once", Text: "Use your Google account or an email and password. Your pick."},
}

var homeTestimonials = []Testimonial{
	{Quote: "Found two conferences here I would have missed otherwise.", Author: "Dana R."},
	{Quote: "The only events page I check every week.", Author: "Marcus T."},
}

// Home renders the homepage.
// GET /
func (h *FrontendHandler) Home(w http.ResponseWriter, r *http.Request) {
	// Chi routes "/" as a catch-all, so everything unknown lands here
	if r.URL.Path != RouteRoot {
		h.NotFound(w, r)
		return
	}

	upcoming, err := h.queries.ListUpcomingEvents(r.Context(), startOfToday(), upcomingEventsLimit)
	if err != nil {
		logAndInternalError(w, "failed to load upcoming events", "error", err)
		return
	}

	data := HomeData{
		Highlights:     homeHighlights,
		UpcomingEvents: upcoming,
		Testimonials:   homeTestimonials,
	}

	if err := h.renderer.Render(w, r, "pages/home", render.TemplateData{
		Title: "Eventline - Find your next event",
		User:  middleware.GetUser(r),
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "failed to render homepage", "error", err)
	}
}

// Events renders the public event listing.
// GET /events
func (h *FrontendHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListPublished(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to load events", "error", err)
		return
	}

	if err := h.renderer.Render(w, r, "pages/events", render.TemplateData{
		Title: "All Events",
		User:  middleware.GetUser(r),
		Data:  events,
	}); err != nil {
		logAndInternalError(w, "failed to render events page", "error", err)
	}
}

// EventDetail renders a single event page.
// GET /events/{slug}
func (h *FrontendHandler) EventDetail(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !util.IsValidSlug(slug) {
		// Malformed slugs can never match, skip the cache and database
		h.NotFound(w, r)
		return
	}

	event, err := h.events.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.NotFound(w, r)
			return
		}
		logAndInternalError(w, "failed to load event", "error", err, "slug", slug)
		return
	}

	if err := h.renderer.Render(w, r, "pages/event", render.TemplateData{
		Title: event.Title,
		User:  middleware.GetUser(r),
		Data:  event,
	}); err != nil {
		logAndInternalError(w, "failed to render event page", "error", err, "slug", slug)
	}
}

// NotFound renders the 404 page.
func (h *FrontendHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if err := h.renderer.Render(w, r, "pages/notfound", render.TemplateData{
		Title: "Page Not Found",
		User:  middleware.GetUser(r),
	}); err != nil {
		http.Error(w, "Page Not Found", http.StatusNotFound)
	}
}

// startOfToday returns midnight of the current day in local time.
// Events keep their listing for the whole calendar day of the event.
func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

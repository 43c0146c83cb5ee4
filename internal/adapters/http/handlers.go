package http

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/core/usecases"
	"github.com/samirrijal/trailwhisper/internal/pkg/geometry"
	"github.com/samirrijal/trailwhisper/internal/pkg/geospatial"
)

// UserHeader carries the authenticated caller. Authentication itself happens
// upstream of this service.
const UserHeader = "X-User-ID"

const (
	uploadField = "files"
	// listWindow is how many activities a listing considers before paging.
	listWindow   = 200
	defaultLimit = 50
)

func userID(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Get(UserHeader))
}

// ---- Uploads ----

// UploadResponse is the per-file outcome of an upload batch.
type UploadResponse struct {
	Results  []domain.UploadResult `json:"results"`
	Uploaded int                   `json:"uploaded"`
	Failed   int                   `json:"failed"`
}

// UploadActivitiesHandler accepts a multipart batch of FIT files under the
// "files" field. Every file gets its own result; one bad file never fails
// the request.
func UploadActivitiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, "missing "+UserHeader)
		}

		form, err := c.MultipartForm()
		if err != nil {
			return errBadRequest(c, "expected a multipart form with files")
		}
		headers := form.File[uploadField]
		if len(headers) == 0 {
			return errBadRequest(c, "no files uploaded")
		}
		limits := deps.limits()
		if len(headers) > limits.MaxFiles {
			return errTooLarge(c, fmt.Sprintf("at most %d files per upload", limits.MaxFiles))
		}

		results := make([]domain.UploadResult, len(headers))
		files := make([]usecases.UploadFile, 0, len(headers))
		slots := make([]int, 0, len(headers))
		for i, fh := range headers {
			if fh.Size > limits.MaxFileBytes {
				results[i] = domain.UploadResult{
					FileName: fh.Filename,
					Status:   domain.UploadError,
					Error:    fmt.Sprintf("File too large (max %d MB)", limits.MaxFileBytes>>20),
				}
				continue
			}
			data, err := readFormFile(fh, limits.MaxFileBytes)
			if err != nil {
				results[i] = domain.UploadResult{
					FileName:  fh.Filename,
					Status:    domain.UploadError,
					Error:     "Upload failed: could not read file",
					Retryable: true,
				}
				continue
			}
			files = append(files, usecases.UploadFile{Name: fh.Filename, Data: data})
			slots = append(slots, i)
		}

		if len(files) > 0 {
			for j, r := range deps.Uploads.ProcessBatch(c.UserContext(), user, files) {
				results[slots[j]] = r
			}
		}

		resp := UploadResponse{Results: results}
		for _, r := range results {
			if r.Status == domain.UploadDone {
				resp.Uploaded++
			} else {
				resp.Failed++
			}
		}
		return c.JSON(resp)
	}
}

func readFormFile(fh *multipart.FileHeader, max int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("file exceeds %d bytes", max)
	}
	return data, nil
}

// ---- Activities ----

// ActivityListItem is an activity without its track.
type ActivityListItem struct {
	domain.Activity
	DistanceText string `json:"distance_text"`
}

// ListActivitiesHandler lists the caller's activities with optional sport,
// time range and near filters.
func ListActivitiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, "missing "+UserHeader)
		}

		filter := domain.ActivityFilter{UserID: user, Limit: listWindow}

		if raw := strings.ToLower(c.Query("sport")); raw != "" && raw != "all" {
			sport := domain.ParseSport(raw)
			if sport == domain.SportOther && raw != string(domain.SportOther) {
				return errBadRequest(c, "unknown sport: "+raw)
			}
			filter.Sport = sport
		}

		var err error
		if filter.From, err = parseTimeQuery(c, "from"); err != nil {
			return errBadRequest(c, err.Error())
		}
		if filter.To, err = parseTimeQuery(c, "to"); err != nil {
			return errBadRequest(c, err.Error())
		}

		if c.Query("near_lat") != "" || c.Query("near_lon") != "" {
			center, err := parsePoint(c, "near_lat", "near_lon")
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			radius := c.QueryFloat("radius", usecases.DefaultVisitRadius)
			filter.Near = &domain.RadiusFilter{Center: center, RadiusMeters: radius}
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", defaultLimit)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > listWindow {
			limit = defaultLimit
		}

		activities, err := deps.Activities.List(c.UserContext(), filter)
		if err != nil {
			return serviceError(c, err)
		}

		total := len(activities)
		page := []ActivityListItem{}
		if offset < total {
			end := min(offset+limit, total)
			for _, a := range activities[offset:end] {
				a.Track = nil
				page = append(page, ActivityListItem{Activity: a, DistanceText: geometry.FormatDistance(a.TotalDistanceMeters)})
			}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// ActivityDetail is an activity with its track and the derived map data.
type ActivityDetail struct {
	domain.Activity
	Polyline     string           `json:"polyline"`
	Bounds       *domain.Bounds   `json:"bounds,omitempty"`
	Start        *domain.GeoPoint `json:"start,omitempty"`
	Finish       *domain.GeoPoint `json:"finish,omitempty"`
	DistanceText string           `json:"distance_text"`
}

// NewActivityDetail derives the map data of an activity.
func NewActivityDetail(a domain.Activity) ActivityDetail {
	d := ActivityDetail{
		Activity:     a,
		Polyline:     geometry.EncodePolyline(a.Track),
		DistanceText: geometry.FormatDistance(a.TotalDistanceMeters),
	}
	if b, ok := geospatial.TrackBounds(a.Track); ok {
		d.Bounds = &b
	}
	if n := len(a.Track); n > 0 {
		start, finish := a.Track[0], a.Track[n-1]
		d.Start, d.Finish = &start, &finish
	}
	return d
}

// GetActivityHandler returns one activity with its full track.
func GetActivityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := lookupActivity(c, deps)
		if err != nil || a == nil {
			return err
		}
		return c.JSON(NewActivityDetail(*a))
	}
}

// ActivityGeoJSONHandler downloads an activity as a GeoJSON Feature.
func ActivityGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := lookupActivity(c, deps)
		if err != nil || a == nil {
			return err
		}
		data, err := geometry.FeatureJSON(*a)
		if err != nil {
			return errInternal(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, geometry.FeatureFileName(a.ID)))
		return c.Send(data)
	}
}

// ActivityKMLHandler downloads an activity as a KML document.
func ActivityKMLHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := lookupActivity(c, deps)
		if err != nil || a == nil {
			return err
		}
		var buf bytes.Buffer
		if err := geometry.WriteKML(&buf, *a); err != nil {
			return errInternal(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/vnd.google-earth.kml+xml")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="activity-%s.kml"`, a.ID))
		return c.Send(buf.Bytes())
	}
}

// DeleteActivityHandler removes an activity and its archived file.
func DeleteActivityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, "missing "+UserHeader)
		}
		if err := deps.Activities.Delete(c.UserContext(), user, c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// lookupActivity loads the :id activity of the caller. On failure it has
// already written the response and returns a nil activity.
func lookupActivity(c *fiber.Ctx, deps *Dependencies) (*domain.Activity, error) {
	user := userID(c)
	if user == "" {
		return nil, errUnauthorized(c, "missing "+UserHeader)
	}
	id := c.Params("id")
	if id == "" {
		return nil, errBadRequest(c, "activity id is required")
	}
	a, err := deps.Activities.Get(c.UserContext(), user, id)
	if err != nil {
		return nil, serviceError(c, err)
	}
	return a, nil
}

// ---- Visits & location ----

// VisitsNearHandler answers whether the caller has been near a place before.
// The place is either lat/lon or a device/manual location source.
func VisitsNearHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, "missing "+UserHeader)
		}
		radius := c.QueryFloat("radius", 0)
		if radius < 0 {
			return errBadRequest(c, "radius must be positive")
		}

		var (
			result *usecases.VisitsNear
			err    error
		)
		if c.Query("lat") != "" || c.Query("lon") != "" {
			at, perr := parsePoint(c, "lat", "lon")
			if perr != nil {
				return errBadRequest(c, perr.Error())
			}
			result, err = deps.Visits.Near(c.UserContext(), user, at, radius)
		} else {
			src, perr := parseLocationSource(c)
			if perr != nil {
				return errBadRequest(c, perr.Error())
			}
			result, err = deps.Visits.NearSource(c.UserContext(), user, src, radius)
		}
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(result)
	}
}

// LocationResponse is the effective location and where it came from.
type LocationResponse struct {
	Location domain.GeoPoint           `json:"location"`
	Source   domain.LocationSourceKind `json:"source"`
}

// LocationHandler resolves device_lat/device_lon and manual_lat/manual_lon
// into the coordinate the app should use. A manual override wins.
func LocationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		src, err := parseLocationSource(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		p, kind, err := usecases.ResolveLocation(src)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(LocationResponse{Location: p, Source: kind})
	}
}

// ---- Query parsing ----

func parseLocationSource(c *fiber.Ctx) (domain.LocationSource, error) {
	var src domain.LocationSource
	if c.Query("device_lat") != "" || c.Query("device_lon") != "" {
		p, err := parsePoint(c, "device_lat", "device_lon")
		if err != nil {
			return src, err
		}
		src.Device = &p
	}
	if c.Query("manual_lat") != "" || c.Query("manual_lon") != "" {
		p, err := parsePoint(c, "manual_lat", "manual_lon")
		if err != nil {
			return src, err
		}
		src.Manual = &p
	}
	return src, nil
}

// parsePoint reads a coordinate pair. Zero is a valid latitude, so presence
// is checked on the raw strings.
func parsePoint(c *fiber.Ctx, latKey, lonKey string) (domain.GeoPoint, error) {
	rawLat, rawLon := c.Query(latKey), c.Query(lonKey)
	if rawLat == "" || rawLon == "" {
		return domain.GeoPoint{}, fmt.Errorf("%s and %s are required", latKey, lonKey)
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("invalid %s", latKey)
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("invalid %s", lonKey)
	}
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		return domain.GeoPoint{}, fmt.Errorf("%s/%s out of range", latKey, lonKey)
	}
	return p, nil
}

// parseTimeQuery accepts RFC 3339 timestamps or plain dates (UTC midnight).
func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid %s: use RFC 3339 or YYYY-MM-DD", key)
}

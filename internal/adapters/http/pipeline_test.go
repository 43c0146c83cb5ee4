package http_test

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/kit/semicircles"
	"github.com/muktihari/fit/profile/filedef"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"

	handler "github.com/samirrijal/trailwhisper/internal/adapters/http"
	"github.com/samirrijal/trailwhisper/internal/adapters/sqlite"
	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/core/usecases"
	"github.com/samirrijal/trailwhisper/internal/pkg/fitdecode"
)

func encodeRide(t *testing.T) []byte {
	t.Helper()
	act := filedef.NewActivity()
	act.FileId = *mesgdef.NewFileId(nil).
		SetType(typedef.FileActivity).
		SetTimeCreated(t0).
		SetManufacturer(typedef.ManufacturerDevelopment)
	for i, p := range track {
		act.Records = append(act.Records, mesgdef.NewRecord(nil).
			SetTimestamp(t0.Add(time.Duration(i)*time.Minute)).
			SetPositionLat(semicircles.ToSemicircles(p.Lat)).
			SetPositionLong(semicircles.ToSemicircles(p.Lon)).
			SetDistance(uint32(i*40000)))
	}
	act.Sessions = append(act.Sessions, mesgdef.NewSession(nil).
		SetSport(typedef.SportCycling).
		SetStartTime(t0).
		SetTimestamp(t0.Add(20*time.Minute)).
		SetTotalDistance(84200))

	fit := act.ToFIT(nil)
	var buf bytes.Buffer
	if err := encoder.New(&buf).Encode(&fit); err != nil {
		t.Fatalf("encode fit: %v", err)
	}
	return buf.Bytes()
}

// TestPipeline_UploadThenVisit runs a FIT file through upload, decoding,
// storage and the visit lookup on the embedded store.
func TestPipeline_UploadThenVisit(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "pipeline.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewActivityRepo(db)
	app := setupApp(&handler.Dependencies{
		Activities: usecases.NewActivityService(repo, nil, nil, nil),
		Uploads:    usecases.NewUploadService(fitdecode.NewDecoder(nil), repo, nil, nil, nil, 2),
		Visits:     usecases.NewVisitService(repo, nil, 0),
		DB:         db,
	})

	req := multipartUpload(t, "u1", map[string][]byte{
		"ride.fit":  encodeRide(t),
		"notes.txt": []byte("not a fit file"),
	}, "ride.fit", "notes.txt")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	expectStatus(t, resp, 200)

	var up handler.UploadResponse
	decode(t, resp, &up)
	if up.Uploaded != 1 || up.Failed != 1 {
		t.Fatalf("expected 1 uploaded / 1 failed, got %+v", up.Results)
	}
	ride := up.Results[0]
	if ride.Sport != domain.SportCycling {
		t.Errorf("expected cycling, got %q", ride.Sport)
	}
	if up.Results[1].Error != "Could not parse notes.txt" {
		t.Errorf("unexpected error %q", up.Results[1].Error)
	}

	resp = get(t, app, "/v1/activities/"+ride.ActivityID, "u1")
	expectStatus(t, resp, 200)
	var detail handler.ActivityDetail
	decode(t, resp, &detail)
	if detail.TotalDistanceMeters != 842 || len(detail.Track) != len(track) {
		t.Errorf("unexpected stored activity: %.0f m, %d points", detail.TotalDistanceMeters, len(detail.Track))
	}
	if !detail.EndedAt.Equal(t0.Add(20 * time.Minute)) {
		t.Errorf("unexpected end %s", detail.EndedAt)
	}

	url := fmt.Sprintf("/v1/visits/near?lat=%f&lon=%f&radius=50", track[2].Lat, track[2].Lon)
	resp = get(t, app, url, "u1")
	expectStatus(t, resp, 200)
	var near usecases.VisitsNear
	decode(t, resp, &near)
	if near.Summary.TotalVisits != 1 || near.Visits[0].ActivityID != ride.ActivityID {
		t.Fatalf("expected the ride as the only visit, got %+v", near.Visits)
	}

	// Another user sees nothing there.
	resp = get(t, app, url, "u2")
	expectStatus(t, resp, 200)
	decode(t, resp, &near)
	if near.Summary.TotalVisits != 0 {
		t.Errorf("expected no visits for u2, got %d", near.Summary.TotalVisits)
	}
}

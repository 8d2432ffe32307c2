package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"placement-engine/feed"
	"placement-engine/ingest"
	"placement-engine/logger"
	"placement-engine/models"
	"placement-engine/placement"
	"placement-engine/report"
	"placement-engine/store"
)

// pointInput is a landing point as posted by clients. Coordinates are
// pointers so that an absent x or y reaches the optimizer as missing.
type pointInput struct {
	X              *float64 `json:"x"`
	Y              *float64 `json:"y"`
	ExitVelocity   *float64 `json:"exit_velocity"`
	LaunchAngleDeg *float64 `json:"launch_angle_deg"`
	SprayAngleDeg  *float64 `json:"spray_angle_deg"`
	HangTime       *float64 `json:"hangtime_s"`
	Handedness     string   `json:"handedness"`
	Outcome        string   `json:"outcome"`
}

type placementRequest struct {
	Player       string               `json:"player"`
	Handedness   string               `json:"handedness"`
	Balls        []pointInput         `json:"balls"`
	Measurements []models.Measurement `json:"measurements"`
	Config       json.RawMessage      `json:"config"`
}

type placementResponse struct {
	RunID     uuid.UUID              `json:"run_id"`
	Player    string                 `json:"player,omitempty"`
	Hand      models.Handedness      `json:"handedness,omitempty"`
	BallCount int                    `json:"ball_count"`
	Result    models.PlacementResult `json:"result"`
	Links     map[string]string      `json:"links"`
	CreatedAt time.Time              `json:"created_at"`
}

// placementJob is one optimization request after decoding. Exactly one
// data source is used: balls, then measurements, then the player's samples
// or stored history.
type placementJob struct {
	player       string
	hand         models.Handedness
	cfg          placement.Config
	balls        []models.BattedBall
	measurements []models.Measurement

	// keys present in the request's config override
	overridden map[string]bool
}

// sideBalls is one side's input and whether it came from the physics
// converter, which places balls in meters from home plate
type sideBalls struct {
	side      models.Handedness
	balls     []models.BattedBall
	converted bool
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC(),
	}

	if s.db != nil {
		health["database"] = "connected"

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.Ping(ctx); err != nil {
			health["database"] = "disconnected"
			health["status"] = "unhealthy"
			writeJSONStatus(w, health, http.StatusServiceUnavailable)
			return
		}
	}

	writeJSON(w, health)
}

// getPlayersHandler merges players on record with bundled sample files.
// With ?source=feed the tracking feed's batters are merged in as well.
func (s *Server) getPlayersHandler(w http.ResponseWriter, r *http.Request) {
	hands := make(map[string]map[models.Handedness]bool)
	add := func(player string, hs []models.Handedness) {
		if hands[player] == nil {
			hands[player] = make(map[models.Handedness]bool)
		}
		for _, h := range hs {
			hands[player][h] = true
		}
	}

	stored, err := s.store.ListPlayers(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	for _, p := range stored {
		add(p.Player, p.Hands)
	}

	samples, err := ingest.DiscoverSamples(s.config.SampleDir)
	if err != nil {
		s.log.WithError(err).Warn("failed to scan sample directory")
	}
	for _, sample := range samples {
		add(sample.Player, sample.Hands)
	}

	if r.URL.Query().Get("source") == "feed" {
		if s.feed == nil || !s.feed.Configured() {
			s.writeDomainError(w, feed.ErrNotConfigured)
			return
		}
		remote, err := s.feed.FetchPlayers(r.Context(), feed.Query{Limit: s.config.Feed.PageLimit})
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		for _, p := range remote {
			if p.Player == "" || (p.Handedness != models.HandLeft && p.Handedness != models.HandRight) {
				continue
			}
			add(p.Player, []models.Handedness{p.Handedness})
		}
	}

	players := make([]store.PlayerHands, 0, len(hands))
	for player, set := range hands {
		p := store.PlayerHands{Player: player}
		for _, h := range []models.Handedness{models.HandLeft, models.HandRight} {
			if set[h] {
				p.Hands = append(p.Hands, h)
			}
		}
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Player < players[j].Player })

	writeJSON(w, map[string]interface{}{"players": players})
}

func (s *Server) createPlacementHandler(w http.ResponseWriter, r *http.Request) {
	var req placementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeDomainError(w, &placement.InvalidInputError{Index: -1, Field: "body", Reason: "is not valid JSON: " + err.Error()})
		return
	}

	job, err := s.newJob(req.Player, req.Handedness, req.Config)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if len(req.Balls) > 0 {
		job.balls = make([]models.BattedBall, 0, len(req.Balls))
		for i, p := range req.Balls {
			ball, err := p.toBall(i)
			if err != nil {
				s.writeDomainError(w, err)
				return
			}
			job.balls = append(job.balls, ball)
		}
	}
	job.measurements = req.Measurements

	s.runAndRespond(w, r, job)
}

// uploadPlacementHandler optimizes a multipart CSV upload. The "kind" form
// field selects landing points (default) or raw measurements.
func (s *Server) uploadPlacementHandler(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.config.Server.MaxUploadBytes {
		s.writeDomainError(w, &http.MaxBytesError{Limit: s.config.Server.MaxUploadBytes})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.Server.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeDomainError(w, err)
			return
		}
		s.writeDomainError(w, &placement.InvalidInputError{Index: -1, Field: "file", Reason: "could not read multipart form: " + err.Error()})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeDomainError(w, &placement.InvalidInputError{Index: -1, Field: "file", Reason: "is required"})
		return
	}
	defer file.Close()

	var cfgOverride json.RawMessage
	if raw := r.FormValue("config"); raw != "" {
		cfgOverride = json.RawMessage(raw)
	}
	job, err := s.newJob(r.FormValue("player"), r.FormValue("handedness"), cfgOverride)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if job.player == "" {
		job.player = strings.TrimSuffix(header.Filename, ".csv")
	}

	switch strings.ToLower(r.FormValue("kind")) {
	case "", "points":
		job.balls, err = ingest.ParseCSV(file, models.DefaultFieldBounds())
	case "measurements":
		job.measurements, err = ingest.ParseMeasurementsCSV(file)
		if err == nil && len(job.measurements) == 0 {
			err = fmt.Errorf("%s: %w", header.Filename, ingest.ErrNoRows)
		}
	default:
		err = &placement.InvalidInputError{Index: -1, Field: "kind", Reason: "must be points or measurements"}
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.runAndRespond(w, r, job)
}

func (s *Server) runAndRespond(w http.ResponseWriter, r *http.Request, job placementJob) {
	run, err := s.runPlacement(r.Context(), job)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if err := s.store.SaveRun(r.Context(), run); err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSONStatus(w, newPlacementResponse(run), http.StatusCreated)
}

// newJob decodes the parts shared by JSON and upload requests. The config
// override is applied over a copy of the server defaults.
func (s *Server) newJob(player, hand string, override json.RawMessage) (placementJob, error) {
	job := placementJob{player: strings.TrimSpace(player), cfg: s.config.Placement}

	if strings.TrimSpace(hand) != "" {
		h, err := models.ParseHandedness(hand)
		if err != nil {
			return job, &placement.InvalidInputError{Index: -1, Field: "handedness", Reason: "must be L, R or B"}
		}
		job.hand = h
	}

	if len(override) > 0 && string(override) != "null" {
		dec := json.NewDecoder(bytes.NewReader(override))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&job.cfg); err != nil {
			return job, &placement.ConfigurationError{Field: "config", Reason: err.Error()}
		}

		var keys map[string]json.RawMessage
		if err := json.Unmarshal(override, &keys); err == nil {
			job.overridden = make(map[string]bool, len(keys))
			for k := range keys {
				job.overridden[k] = true
			}
		}
	}

	mode, err := models.ParseMode(string(job.cfg.Mode))
	if err != nil {
		return job, &placement.ConfigurationError{Field: "mode", Reason: err.Error()}
	}
	job.cfg.Mode = mode
	return job, nil
}

// runPlacement optimizes each requested side. Both sides are optimized
// independently and averaged.
func (s *Server) runPlacement(ctx context.Context, job placementJob) (*store.Run, error) {
	inputs := make([]sideBalls, 0, 2)
	for _, side := range job.hand.Sides() {
		in, err := s.ballsForSide(ctx, job, side)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	job.cfg.Mode = s.modeForInputs(job, inputs)

	opt, err := placement.New(job.cfg)
	if err != nil {
		return nil, err
	}

	run := &store.Run{
		Player:     job.player,
		Handedness: job.hand,
		Mode:       job.cfg.Mode,
		Config:     job.cfg,
	}

	results := make([]models.PlacementResult, 0, len(inputs))
	for _, in := range inputs {
		start := time.Now()
		res, err := opt.Optimize(ctx, in.balls)
		if err != nil {
			return nil, err
		}
		elapsed := time.Since(start)
		s.metrics.ObservePlacement(job.cfg.Mode, elapsed)
		logger.LogDuration(s.log, "optimize", elapsed, logger.Fields{
			"player": job.player,
			"side":   string(in.side),
			"mode":   string(job.cfg.Mode),
			"balls":  len(in.balls),
		})

		results = append(results, res)
		run.Balls = append(run.Balls, in.balls...)
		run.BallCount += len(in.balls)
	}

	if len(results) == 1 {
		run.Result = results[0]
		return run, nil
	}

	run.Result, err = placement.Average(results...)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// modeForInputs picks the search mode. The min-distance zone rectangles
// default to feet, so converted balls (meters) fall back to coverage unless
// the request chose the mode or supplied its own zones.
func (s *Server) modeForInputs(job placementJob, inputs []sideBalls) models.Mode {
	if job.cfg.Mode != models.ModeMinDistance || job.overridden["zones"] {
		return job.cfg.Mode
	}

	converted := false
	for _, in := range inputs {
		converted = converted || in.converted
	}
	if !converted {
		return job.cfg.Mode
	}

	entry := s.log.WithFields(logger.Fields{"player": job.player, "mode": string(job.cfg.Mode)})
	if job.overridden["mode"] {
		entry.Warn("converted balls are in meters but the min_distance zones are the feet defaults")
		return job.cfg.Mode
	}
	entry.Info("converted balls use coverage mode")
	return models.ModeCoverage
}

// ballsForSide resolves the job's data source and keeps the balls hit from
// side. Points without a side are kept for every side.
func (s *Server) ballsForSide(ctx context.Context, job placementJob, side models.Handedness) (sideBalls, error) {
	in := sideBalls{side: side}
	var err error
	switch {
	case len(job.balls) > 0:
		in.balls = make([]models.BattedBall, 0, len(job.balls))
		for _, b := range job.balls {
			if onSide(b.Handedness, side) {
				in.balls = append(in.balls, b)
			}
		}
		return in, nil

	case len(job.measurements) > 0:
		ms := make([]models.Measurement, 0, len(job.measurements))
		for _, m := range job.measurements {
			if onSide(m.Handedness, side) {
				ms = append(ms, m)
			}
		}
		in.converted = true
		in.balls, err = placement.ConvertMeasurements(ms, job.cfg.FieldRadius)
		return in, err

	case job.player != "":
		if side == "" {
			return in, &placement.InvalidInputError{Index: -1, Field: "handedness", Reason: "is required when loading a player's history"}
		}
		in.balls, err = ingest.LoadSample(s.config.SampleDir, job.player, side, models.DefaultFieldBounds())
		if err == nil {
			return in, nil
		}
		if !errors.Is(err, ingest.ErrSampleNotFound) {
			return in, err
		}

		ms, err := s.store.LoadBattedBalls(ctx, job.player, side)
		if err != nil {
			return in, err
		}
		in.converted = true
		in.balls, err = placement.ConvertMeasurements(ms, job.cfg.FieldRadius)
		return in, err

	default:
		return in, &placement.InvalidInputError{Index: -1, Field: "balls", Reason: "or measurements or player is required"}
	}
}

func onSide(h, side models.Handedness) bool {
	return side == "" || h == "" || h == side
}

func (p pointInput) toBall(i int) (models.BattedBall, error) {
	ball := models.BattedBall{
		X:              models.ValueOrNaN(p.X),
		Y:              models.ValueOrNaN(p.Y),
		ExitVelocity:   p.ExitVelocity,
		LaunchAngleDeg: p.LaunchAngleDeg,
		SprayAngleDeg:  p.SprayAngleDeg,
		HangTime:       p.HangTime,
		Outcome:        p.Outcome,
	}
	if strings.TrimSpace(p.Handedness) != "" {
		h, err := models.ParseHandedness(p.Handedness)
		if err != nil || h == models.HandBoth {
			return ball, &placement.InvalidInputError{Index: i, Field: "handedness", Reason: "must be L or R"}
		}
		ball.Handedness = h
	}
	return ball, nil
}

func (s *Server) listPlacementsHandler(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), parseLimit(r, 20))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	out := make([]placementResponse, 0, len(runs))
	for i := range runs {
		out = append(out, newPlacementResponse(&runs[i]))
	}
	writeJSON(w, map[string]interface{}{"placements": out, "count": len(out)})
}

func (s *Server) getPlacementHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, newPlacementResponse(run))
}

func (s *Server) placementCSVHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, run.Result); err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportName(run, "csv")))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) placementPlotHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	png, err := s.renderPlot(r.Context(), run)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (s *Server) placementReportHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	png, err := s.renderPlot(r.Context(), run)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	sheet := report.Sheet{
		Title:    runTitle(run),
		Subtitle: fmt.Sprintf("%s mode, %d balls, %s", run.Mode, run.BallCount, run.CreatedAt.Format("2006-01-02 15:04 MST")),
		Result:   run.Result,
		PlotPNG:  png,
	}

	var buf bytes.Buffer
	if err := report.WritePDF(&buf, sheet); err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportName(run, "pdf")))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) renderPlot(ctx context.Context, run *store.Run) ([]byte, error) {
	balls, err := s.store.GetRunBalls(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return report.RenderPlot(balls, run.Result, runTitle(run))
}

type refreshRequest struct {
	PlayerIDs  []string `json:"player_ids"`
	Handedness string   `json:"handedness"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	Limit      int      `json:"limit"`
}

// refreshDataHandler pulls batted balls from the tracking platform into the
// store
func (s *Server) refreshDataHandler(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil || !s.feed.Configured() {
		s.writeDomainError(w, feed.ErrNotConfigured)
		return
	}

	var req refreshRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeDomainError(w, &placement.InvalidInputError{Index: -1, Field: "body", Reason: "is not valid JSON: " + err.Error()})
			return
		}
	}

	q := feed.Query{
		PlayerIDs: req.PlayerIDs,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Limit:     req.Limit,
	}
	if q.Limit <= 0 {
		q.Limit = s.config.Feed.PageLimit
	}
	if strings.TrimSpace(req.Handedness) != "" {
		h, err := models.ParseHandedness(req.Handedness)
		if err != nil {
			s.writeDomainError(w, &placement.InvalidInputError{Index: -1, Field: "handedness", Reason: "must be L, R or B"})
			return
		}
		if h != models.HandBoth {
			q.Handedness = h
		}
	}

	start := time.Now()
	items, err := s.feed.FetchBattedBalls(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	stored, err := s.store.SaveBattedBalls(r.Context(), ingest.MapFeedItems(items))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	logger.LogDuration(s.log, "data_refresh", time.Since(start), logger.Fields{
		"fetched": len(items),
		"stored":  stored,
	})

	writeJSON(w, map[string]interface{}{
		"status":  "completed",
		"fetched": len(items),
		"stored":  stored,
		"time":    time.Now().UTC(),
	})
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*store.Run, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeErrorWithDetails(w, "Invalid placement run ID", "invalid_input", nil, http.StatusBadRequest)
		return nil, false
	}

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return nil, false
	}
	return run, true
}

func newPlacementResponse(run *store.Run) placementResponse {
	base := "/api/v1/placements/" + run.ID.String()
	return placementResponse{
		RunID:     run.ID,
		Player:    run.Player,
		Hand:      run.Handedness,
		BallCount: run.BallCount,
		Result:    run.Result,
		CreatedAt: run.CreatedAt,
		Links: map[string]string{
			"self":   base,
			"csv":    base + "/csv",
			"plot":   base + "/plot.png",
			"report": base + "/report.pdf",
		},
	}
}

func runTitle(run *store.Run) string {
	if run.Player == "" {
		return "Outfield placement"
	}
	if run.Handedness == "" {
		return run.Player
	}
	return fmt.Sprintf("%s (%s)", run.Player, run.Handedness)
}

func exportName(run *store.Run, ext string) string {
	name := "placement"
	if run.Player != "" {
		name = strings.ReplaceAll(run.Player, " ", "_")
	}
	if run.Handedness != "" {
		name += "_" + string(run.Handedness)
	}
	return name + "." + ext
}

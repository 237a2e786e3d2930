package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdlinsight/gdlinsight/internal/config"
	"github.com/gdlinsight/gdlinsight/internal/database"
	"github.com/gdlinsight/gdlinsight/internal/extract"
	"github.com/gdlinsight/gdlinsight/internal/news"
	"github.com/gdlinsight/gdlinsight/internal/record"
	"github.com/gdlinsight/gdlinsight/internal/retry"
)

const stationPage = `<html><body><h1>Calidad del aire ZMG</h1><table>
<tr><td>Las Pintas</td><td>105</td></tr>
<tr><td>Miravalle</td><td>98</td></tr>
<tr><td>Centro</td><td>64</td></tr>
<tr><td>Tlaquepaque</td><td>88</td></tr>
<tr><td>Águilas</td><td>51</td></tr>
</table></body></html>`

const singleIndexPage = `<p>Calidad del aire: Muy Mala. Nivel máximo registrado 142 puntos IMECA en Las Pintas</p>`

const feed = `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>t</title>
<item><title>Chivas golea</title><link>https://example.com/1</link><description>Resultado del partido</description></item>
<item><title>Chivas ficha</title><link>https://example.com/2</link><description>Se rumora un fichaje</description></item>
</channel></rss>`

func serve(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Retry.Attempts = 2
	cfg.Retry.Delay = 0
	cfg.Output.CacheDir = t.TempDir()
	cfg.Sources.AirURL = serve(t, http.StatusOK, stationPage)
	cfg.Sources.WaterURL = serve(t, http.StatusOK, "<p>Cota: 94.56 msnm</p>")
	feedURL := serve(t, http.StatusOK, feed)
	for i := range cfg.News.Topics {
		cfg.News.Topics[i].URL = feedURL
	}
	return cfg
}

func TestAirStationsReal(t *testing.T) {
	s := New(testConfig(t), nil, nil)

	out := s.AirStations(context.Background(), true)
	require.Equal(t, record.KindOK, out.Kind)
	require.NoError(t, out.Err)
	require.Len(t, out.Value, 5)
	for _, r := range out.Value {
		assert.Equal(t, record.OriginReal, r.Origin)
		assert.NotNil(t, r.Coordinates)
	}
}

func TestAirStationsTooFewGivesFullSyntheticSet(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources.AirURL = serve(t, http.StatusOK, singleIndexPage)
	s := New(cfg, nil, nil)

	out := s.AirStations(context.Background(), true)
	require.Equal(t, record.KindDegraded, out.Kind)
	require.Len(t, out.Value, s.Registry().Len())
	for _, r := range out.Value {
		assert.Equal(t, record.OriginSynthetic, r.Origin)
	}

	var fe *retry.FetchError
	require.ErrorAs(t, out.Err, &fe)
	assert.Equal(t, "air", fe.Dataset)
	assert.ErrorIs(t, out.Err, extract.ErrTooFewStations)
}

func TestAirStationsNoSynthetic(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources.AirURL = serve(t, http.StatusServiceUnavailable, "")
	s := New(cfg, nil, nil)

	out := s.AirStations(context.Background(), false)
	assert.Equal(t, record.KindErr, out.Kind)
	assert.Empty(t, out.Value)
	assert.ErrorIs(t, out.Err, retry.ErrExhausted)
}

func TestAirSummaryWorstStation(t *testing.T) {
	s := New(testConfig(t), nil, nil)

	out := s.AirSummary(context.Background(), true)
	require.Equal(t, record.KindOK, out.Kind)
	assert.Equal(t, "Las Pintas", out.Value.Station)
	assert.Equal(t, 105, out.Value.IndexValue)
	assert.Equal(t, record.Classify(105), out.Value.Status)
}

func TestAirSummaryContextualPhrase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources.AirURL = serve(t, http.StatusOK, "<p>Nivel máximo registrado 142 puntos IMECA en Las Pintas</p>")
	s := New(cfg, nil, nil)

	out := s.AirSummary(context.Background(), false)
	require.Equal(t, record.KindOK, out.Kind)
	assert.Equal(t, "Las Pintas", out.Value.Station)
	assert.Equal(t, 142, out.Value.IndexValue)
	assert.Equal(t, record.StatusBad, out.Value.Status)
	assert.Equal(t, record.OriginReal, out.Value.Origin)
	assert.False(t, out.Value.StatusOverridden)
	assert.NotNil(t, out.Value.Coordinates)
}

func TestAirSummarySingleIndexWithStatusOverride(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources.AirURL = serve(t, http.StatusOK, singleIndexPage)
	s := New(cfg, nil, nil)

	out := s.AirSummary(context.Background(), false)
	require.Equal(t, record.KindOK, out.Kind)
	assert.Equal(t, 142, out.Value.IndexValue)
	assert.Equal(t, "Las Pintas", out.Value.Station)
	assert.Equal(t, record.StatusVeryBad, out.Value.Status)
	assert.True(t, out.Value.StatusOverridden)
}

func TestWaterLevel(t *testing.T) {
	s := New(testConfig(t), nil, nil)

	out := s.WaterLevel(context.Background(), true)
	require.Equal(t, record.KindOK, out.Kind)
	assert.InDelta(t, 94.56, out.Value.ElevationMeters, 1e-9)
	assert.Equal(t, record.WaterUnit, out.Value.Unit)
	assert.Contains(t, out.Value.EvidenceSnippet, "94.56")
}

func TestWaterLevelOutOfRangeFallsBack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources.WaterURL = serve(t, http.StatusOK, "<p>Cota: 194.56 msnm</p>")
	s := New(cfg, nil, nil)

	out := s.WaterLevel(context.Background(), true)
	require.Equal(t, record.KindDegraded, out.Kind)
	assert.Equal(t, record.OriginSynthetic, out.Value.Origin)
	assert.InDelta(t, 94.50, out.Value.ElevationMeters, 1e-9)
	assert.ErrorIs(t, out.Err, extract.ErrNotFound)
}

func TestWaterHistoryDefaultsToConfiguredDays(t *testing.T) {
	s := New(testConfig(t), nil, nil)
	assert.Len(t, s.WaterHistory(0), 30)
	assert.Len(t, s.WaterHistory(7), 7)
}

func TestNewsUnknownTopic(t *testing.T) {
	s := New(testConfig(t), nil, nil)
	_, err := s.News(context.Background(), "deportes", news.Options{})
	assert.Error(t, err)
}

func TestNewsWithoutProviderTruncates(t *testing.T) {
	s := New(testConfig(t), nil, nil)

	items, err := s.News(context.Background(), "chivas", news.Options{UseAI: true})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.False(t, items[0].Processed)
	assert.Equal(t, "Resultado del partido", items[0].AISummary)
	assert.Equal(t, "chivas", items[0].Topic)
}

func TestHistoryIsRecorded(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(testConfig(t), db, nil)
	require.Equal(t, record.KindOK, s.AirStations(context.Background(), true).Kind)
	require.Equal(t, record.KindOK, s.WaterLevel(context.Background(), true).Kind)

	rows, err := db.GetAirReadings(database.GetToday())
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	levels, err := s.ElevationHistory(7)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.InDelta(t, 94.56, levels[0].Elevation, 1e-9)

	reports, err := db.GetRecentReports(10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Equal(t, "ok", r.Outcome)
	}
}

func TestSnapshot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources.WaterURL = serve(t, http.StatusInternalServerError, "")
	s := New(cfg, nil, nil)

	snap := s.Snapshot(context.Background(), SnapshotOptions{AllowSynthetic: true})
	require.Len(t, snap.Stations, 5)
	require.NotNil(t, snap.Worst)
	assert.Equal(t, "Las Pintas", snap.Worst.Station)

	require.NotNil(t, snap.Water)
	assert.Equal(t, record.OriginSynthetic, snap.Water.Origin)

	require.Len(t, snap.News, 2)
	assert.Equal(t, "env", snap.News[0].Key)
	assert.Len(t, snap.News[1].Items, 2)
	assert.Len(t, snap.History, 30)

	assert.Len(t, snap.Steps, 4)
	kinds := map[string]record.Kind{}
	for _, st := range snap.Steps {
		kinds[st.Name] = st.Kind
	}
	assert.Equal(t, record.KindDegraded, kinds["Water"])
	assert.Equal(t, record.KindOK, kinds["Air"])
}

func TestSnapshotCancelled(t *testing.T) {
	s := New(testConfig(t), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := s.Snapshot(ctx, SnapshotOptions{AllowSynthetic: false})
	assert.Empty(t, snap.Stations)
	assert.Nil(t, snap.Water)
	for _, st := range snap.Steps {
		assert.Equal(t, record.KindErr, st.Kind, st.Name)
		assert.True(t, errors.Is(st.Err, context.Canceled), st.Name)
	}
}

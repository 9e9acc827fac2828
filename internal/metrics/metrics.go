package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodgram_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Domain metrics
	RecipesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_recipes_written_total",
			Help: "Recipes created, updated or deleted",
		},
		[]string{"operation"},
	)

	RecipeValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_recipe_validation_failures_total",
			Help: "Rejected recipe payloads by offending field",
		},
		[]string{"field"},
	)

	ShoppingListsDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodgram_shopping_lists_downloaded_total",
			Help: "Shopping lists rendered for download",
		},
	)

	ShoppingListItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "foodgram_shopping_list_items",
			Help:    "Distinct ingredients per downloaded shopping list",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	ImageUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_image_uploads_total",
			Help: "Recipe image uploads by backend and result",
		},
		[]string{"backend", "result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "foodgram_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	IngredientCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodgram_ingredient_cache_lookups_total",
			Help: "Ingredient search cache lookups by result",
		},
		[]string{"result"},
	)
)

// RecordHTTPRequest records one finished HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordShoppingList records a rendered shopping list with n distinct items.
func RecordShoppingList(n int) {
	ShoppingListsDownloaded.Inc()
	ShoppingListItems.Observe(float64(n))
}

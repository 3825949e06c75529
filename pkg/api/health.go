package api

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status  string `json:"status"`  // "ok" или "error"
	Message string `json:"message"` // человекочитаемое описание состояния
}

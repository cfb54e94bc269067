package utils

import (
	"sync"
	"time"
)

// Metrics содержит метрики приложения
type Metrics struct {
	mu sync.RWMutex

	// Метрики запросов
	TotalRequests   int64
	FailedRequests  int64
	RequestLatency  time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time

	// Метрики карт
	CreatedCards      int64
	DeletedCards      int64
	ExpiringCards     int64
	LastCardOperation time.Time

	// Метрики платежей
	Payments            int64
	FailedPayments      int64
	CompensatedPayments int64
	FailedNotifications int64

	// Метрики ошибок
	ErrorCount    int64
	LastErrorTime time.Time
	ErrorTypes    map[string]int64
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// GetMetrics возвращает экземпляр метрик
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics()
	})
	return metrics
}

// NewMetrics создает независимый набор метрик (используется в тестах)
func NewMetrics() *Metrics {
	return &Metrics{
		ErrorTypes: make(map[string]int64),
	}
}

// RecordRequest записывает метрики запроса
func (m *Metrics) RecordRequest(duration time.Duration, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	m.RequestLatency += duration
	m.AverageLatency = m.RequestLatency / time.Duration(m.TotalRequests)
	m.LastRequestTime = time.Now()

	if status >= 400 {
		m.FailedRequests++
	}
}

// RecordCardOperation записывает метрики операции с картой
func (m *Metrics) RecordCardOperation(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastCardOperation = time.Now()
	if err != nil {
		m.recordErrorLocked(err)
		return
	}

	switch operation {
	case "create":
		m.CreatedCards++
	case "delete":
		m.DeletedCards++
	case "expire":
		m.ExpiringCards++
	}
}

// RecordPayment записывает результат платежа
func (m *Metrics) RecordPayment(err error, compensated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.FailedPayments++
		if compensated {
			m.CompensatedPayments++
		}
		m.recordErrorLocked(err)
		return
	}
	m.Payments++
}

// RecordNotificationFailure записывает неудачную отправку уведомления
func (m *Metrics) RecordNotificationFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FailedNotifications++
	m.recordErrorLocked(err)
}

func (m *Metrics) recordErrorLocked(err error) {
	m.ErrorCount++
	m.LastErrorTime = time.Now()

	errorType := "unknown"
	if err != nil {
		errorType = err.Error()
	}
	m.ErrorTypes[errorType]++
}

// GetMetricsSnapshot возвращает снимок текущих метрик
func (m *Metrics) GetMetricsSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errorTypes := make(map[string]int64, len(m.ErrorTypes))
	for k, v := range m.ErrorTypes {
		errorTypes[k] = v
	}

	return map[string]interface{}{
		"total_requests":       m.TotalRequests,
		"failed_requests":      m.FailedRequests,
		"average_latency":      m.AverageLatency.String(),
		"created_cards":        m.CreatedCards,
		"deleted_cards":        m.DeletedCards,
		"expiring_cards":       m.ExpiringCards,
		"payments":             m.Payments,
		"failed_payments":      m.FailedPayments,
		"compensated_payments": m.CompensatedPayments,
		"failed_notifications": m.FailedNotifications,
		"error_count":          m.ErrorCount,
		"last_error_time":      m.LastErrorTime,
		"error_types":          errorTypes,
	}
}

// ResetMetrics сбрасывает все метрики
func (m *Metrics) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests = 0
	m.FailedRequests = 0
	m.RequestLatency = 0
	m.AverageLatency = 0
	m.CreatedCards = 0
	m.DeletedCards = 0
	m.ExpiringCards = 0
	m.Payments = 0
	m.FailedPayments = 0
	m.CompensatedPayments = 0
	m.FailedNotifications = 0
	m.ErrorCount = 0
	m.ErrorTypes = make(map[string]int64)
}

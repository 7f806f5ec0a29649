// Package worker выполняет campaign jobs: потребление очереди кампании,
// прогон leads батча через engine.Traverser, персист результатов и
// применение error strategy кампании к сбоям.
//
// Worker — stateless относительно графа: всё состояние run живёт в БД,
// поэтому процессы масштабируются горизонтально, а retry после рестарта
// продолжает с незавершённых leads.
package worker

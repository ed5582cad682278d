package mq

import "errors"

// Ошибки пакета mq.
var (
	// ErrBrokerUnavailable — брокер недоступен после исчерпания всех попыток подключения.
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrNotConnected — соединение не установлено, а вызывающий не хочет ждать reconnect.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectionClosed — соединение закрыто через Close.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrPublish — публикация задачи не удалась.
	ErrPublish = errors.New("publish failed")

	// ErrPublishNacked — брокер не подтвердил публикацию.
	ErrPublishNacked = errors.New("publish not confirmed by broker")

	// ErrMalformedTask — тело сообщения не удаётся разобрать в Task.
	ErrMalformedTask = errors.New("malformed task")

	// ErrConsumerRunning — consumer уже запущен.
	ErrConsumerRunning = errors.New("consumer already running")
)

package loader

import "errors"

var (
	// ErrTimeout ожидание загрузки не уложилось в отведённое время
	ErrTimeout = errors.New("истекло время ожидания загрузки")
	// ErrBailed ожидание прервано вызывающей стороной
	ErrBailed = errors.New("ожидание загрузки прервано")
	// ErrNoBatch с момента последнего ожидания не было отправлено ни одного пакета
	ErrNoBatch = errors.New("нет отправленного пакета")
	// ErrLoaderClosed загрузчик остановлен
	ErrLoaderClosed = errors.New("загрузчик остановлен")
)

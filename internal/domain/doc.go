// Package domain содержит основные типы Orkestra: определения саг,
// контекст выполнения, исходы шагов и персистентную запись execution.
//
// Все типы здесь — чистые данные без зависимостей от хранилища,
// транспорта или HTTP. Это позволяет тестировать ядро оркестрации
// без инфраструктуры.
package domain

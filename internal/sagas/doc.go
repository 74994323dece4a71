// Package sagas — встроенные определения саг.
//
// Определения регистрируются при старте сервисов. Бизнес-операции
// шагов здесь упрощены до работы с контекстом: пакет показывает, как
// собирать саги из шагов, и даёт engine'у что исполнять из коробки.
package sagas

package repository

import (
	"skywager/application"
	"skywager/database"
	"skywager/domain/interfaces"
)

// CreateTestUnitOfWork creates a unit of work for tests with the provided transactional publisher
func CreateTestUnitOfWork(db *database.DB, transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork {
	return NewUnitOfWorkFactory(db).CreateWithPublisher(transactionalPublisher)
}

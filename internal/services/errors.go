package services

import (
	"errors"

	"github.com/sirupsen/logrus"
)

var (
	ErrWebsiteNotFound  = errors.New("website not found")
	ErrVariantNotFound  = errors.New("variant not found")
	ErrSyncInProgress   = errors.New("website is already syncing")
	ErrSyncTimeout      = errors.New("sync timed out")
	ErrSyncCancelled    = errors.New("sync cancelled")
	ErrNegativeCost     = errors.New("cost amount must not be negative")
	ErrConnectionFailed = errors.New("could not connect to store with the given credentials")
	ErrInvalidWebsite   = errors.New("invalid website")
)

func componentLogger(logger *logrus.Entry, component string) *logrus.Entry {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return logger.WithField("component", component)
}

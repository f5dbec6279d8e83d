// Package appservices holds the long-running connection services the app
// starts at boot and stops on shutdown.
package appservices

import (
	"context"
	"log"
)

type appService[T any, T2 any] interface {
	Log() *log.Logger
	MsgChan() chan T
	RcvChan() chan T2
	StartCtx(ctx context.Context) error
	Stop() error
}

var _ appService[OverlayNotice, []byte] = (*OBSOverlayService)(nil)

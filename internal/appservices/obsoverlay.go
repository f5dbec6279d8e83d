package appservices

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/recws-org/recws"

	"github.com/azuridayo/tiptune/internal/utils"
)

// obs-websocket v5 opcodes used by the overlay service.
const (
	obsOpHello      = 0
	obsOpIdentify   = 1
	obsOpIdentified = 2
	obsOpRequest    = 6
)

const (
	requesterTemplate = "{username} requested {song}"
	warningTemplate   = "{username}: {message}"
)

// OverlayNotice is one overlay to show. Kind is "requester" or "warning".
type OverlayNotice struct {
	Kind     string `json:"kind"`
	Username string `json:"username"`
	Text     string `json:"text"`
	Duration int    `json:"duration"`
}

// OBSOverlayService pushes overlay notices to obs-websocket over an
// auto-reconnecting connection. Sends are one-way: notices are dropped when
// the buffer is full or OBS is unreachable, and callers never observe the
// outcome.
type OBSOverlayService struct {
	stopChan chan struct{}
	wsURL    string
	password string
	scene    string
	ws       *recws.RecConn
	log      *log.Logger
	msgChan  chan OverlayNotice
	rcvChan  chan []byte

	// identified is written by readLoop and read by sendLoop.
	identified atomic.Bool
}

func NewOBSOverlayService(wsURL, password, scene string) *OBSOverlayService {
	return &OBSOverlayService{
		stopChan: make(chan struct{}),
		wsURL:    wsURL,
		password: password,
		scene:    scene,
		log:      log.New(os.Stderr, "OBS_OVERLAY ", log.Ldate|log.Ltime),
		msgChan:  make(chan OverlayNotice, 100),
		rcvChan:  make(chan []byte, 100),
	}
}

func (s *OBSOverlayService) StartCtx(ctx context.Context) error {
	s.log.Println("OBS overlay service starting...")

	s.ws = &recws.RecConn{
		RecIntvlFactor: 1,
		RecIntvlMin:    3 * time.Second,
	}
	s.ws.Dial(s.wsURL, nil)

	go s.readLoop()
	go s.sendLoop()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.log.Println("OBS overlay service started.")
	return nil
}

// readLoop handles the identify handshake and drains server messages.
func (s *OBSOverlayService) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Println("Recovered in OBS overlay read loop:", r)
		}
	}()
	for {
		select {
		case <-s.stopChan:
			return
		default:
			if !s.ws.IsConnected() {
				s.identified.Store(false)
				time.Sleep(time.Second)
				continue
			}
			_, message, err := s.ws.ReadMessage()
			if err != nil {
				s.identified.Store(false)
				time.Sleep(time.Second)
				continue
			}
			s.handleServerMessage(message)
			select {
			case s.rcvChan <- message:
			default:
			}
		}
	}
}

func (s *OBSOverlayService) handleServerMessage(message []byte) {
	var envelope struct {
		Op int             `json:"op"`
		D  json.RawMessage `json:"d"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		s.log.Printf("Failed to unmarshal OBS message: %v", err)
		return
	}
	switch envelope.Op {
	case obsOpHello:
		var hello struct {
			Authentication *struct {
				Challenge string `json:"challenge"`
				Salt      string `json:"salt"`
			} `json:"authentication"`
		}
		if err := json.Unmarshal(envelope.D, &hello); err != nil {
			s.log.Printf("Failed to unmarshal OBS hello: %v", err)
			return
		}
		identify := map[string]any{
			"op": obsOpIdentify,
			"d": map[string]any{
				"rpcVersion": 1,
			},
		}
		if hello.Authentication != nil && s.password != "" {
			identify["d"].(map[string]any)["authentication"] = obsAuthString(
				s.password, hello.Authentication.Salt, hello.Authentication.Challenge)
		}
		if err := s.writeJSON(identify); err != nil {
			s.log.Printf("Failed to send OBS identify: %v", err)
		}
	case obsOpIdentified:
		s.identified.Store(true)
		s.log.Println("Identified with OBS websocket")
	}
}

// sendLoop forwards queued notices once the connection is identified.
func (s *OBSOverlayService) sendLoop() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Println("Recovered in OBS overlay send loop:", r)
		}
	}()
	for {
		select {
		case <-s.stopChan:
			return
		case notice := <-s.msgChan:
			if !s.identified.Load() {
				s.log.Println("OBS not connected, dropping overlay notice")
				continue
			}
			req := map[string]any{
				"op": obsOpRequest,
				"d": map[string]any{
					"requestType": "CallVendorRequest",
					"requestId":   time.Now().Format(time.RFC3339Nano),
					"requestData": map[string]any{
						"vendorName":  "tiptune-overlay",
						"requestType": "show",
						"requestData": map[string]any{
							"scene":  s.scene,
							"notice": notice,
						},
					},
				},
			}
			if err := s.writeJSON(req); err != nil {
				s.log.Printf("Failed to send overlay notice: %v", err)
			}
		}
	}
}

func (s *OBSOverlayService) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.ws.WriteMessage(websocket.TextMessage, data)
}

// RequesterOverlay queues a song-requester overlay. Implements the request
// pipeline's notifier boundary.
func (s *OBSOverlayService) RequesterOverlay(username, songDetails string, seconds int) {
	s.enqueue(OverlayNotice{
		Kind:     "requester",
		Username: username,
		Text: utils.ReplaceVars(requesterTemplate, map[string]string{
			"username": username,
			"song":     songDetails,
		}),
		Duration: seconds,
	})
}

// WarningOverlay queues a warning overlay for the requester.
func (s *OBSOverlayService) WarningOverlay(username, message string, seconds int) {
	s.enqueue(OverlayNotice{
		Kind:     "warning",
		Username: username,
		Text: utils.ReplaceVars(warningTemplate, map[string]string{
			"username": username,
			"message":  message,
		}),
		Duration: seconds,
	})
}

func (s *OBSOverlayService) enqueue(notice OverlayNotice) {
	select {
	case s.msgChan <- notice:
	default:
		s.log.Println("Overlay channel full, dropping notice")
	}
}

func (s *OBSOverlayService) Stop() error {
	defer func() {
		if r := recover(); r != nil {
			s.log.Println("Recovered in OBSOverlayService Stop():", r)
		}
	}()

	s.log.Println("OBS overlay service stopping...")
	close(s.stopChan)
	if s.ws != nil {
		s.ws.Close()
	}
	s.log.Println("OBS overlay service stopped.")
	return nil
}

func (s *OBSOverlayService) MsgChan() chan OverlayNotice {
	return s.msgChan
}

func (s *OBSOverlayService) RcvChan() chan []byte {
	return s.rcvChan
}

func (s *OBSOverlayService) Log() *log.Logger {
	return s.log
}

// obsAuthString derives the auth response the obs-websocket handshake
// expects: base64(sha256(base64(sha256(password+salt)) + challenge)).
func obsAuthString(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	auth := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}

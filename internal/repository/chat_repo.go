package repository

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"multichat-backend/internal/models"
	"multichat-backend/internal/storage"
)

const (
	chatsKey   = "multichat:chats"
	historyKey = "multichat:history"
)

// ChatRepo is the sole authority over durable chat state. Both storage
// records (the chat collection and the denormalized history index) are
// read-modify-written under one mutex, so appends stay atomic even with
// concurrent callers.
//
// Storage failures never reach callers: a missing or corrupt record is
// logged and treated as an empty collection.
type ChatRepo struct {
	mu    sync.Mutex
	store storage.Store
}

func NewChatRepo(store storage.Store) *ChatRepo {
	return &ChatRepo{store: store}
}

// ListChats returns every durable chat, most recently modified first.
// Ties are broken by insertion order, most recently inserted winning.
func (r *ChatRepo) ListChats(ctx context.Context) []models.Chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortChats(r.loadChats(ctx))
}

// GetChat looks a chat up by id. A miss is a normal result, not an error.
func (r *ChatRepo) GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, chat := range r.loadChats(ctx) {
		if chat.ID == id {
			c := copyChat(chat)
			return &c, true
		}
	}
	return nil, false
}

// ListHistory returns the denormalized index in the same order ListChats
// uses, without deserializing message bodies.
func (r *ChatRepo) ListHistory(ctx context.Context) []models.HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.loadHistory(ctx)
	out := make([]models.HistoryEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// CreateChat allocates a fresh in-memory chat. Nothing is written to
// storage; the chat becomes durable on its first AppendMessage.
func (r *ChatRepo) CreateChat() *models.Chat {
	now := time.Now().UTC()
	return &models.Chat{
		ID:             uuid.New(),
		Title:          models.DefaultChatTitle,
		CreatedAt:      now,
		LastModifiedAt: now,
		Messages:       []models.Message{},
	}
}

// AppendMessage appends msg to the chat, materializing the chat first if no
// durable chat with that id exists. This is the only path by which a chat
// becomes durable.
func (r *ChatRepo) AppendMessage(ctx context.Context, chatID uuid.UUID, msg models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	chats := r.loadChats(ctx)

	idx := indexOf(chats, chatID)
	if idx < 0 {
		chats = append(chats, models.Chat{
			ID:             chatID,
			Title:          models.DefaultChatTitle,
			CreatedAt:      now,
			LastModifiedAt: now,
			Messages:       []models.Message{},
		})
		idx = len(chats) - 1
	}

	chats[idx].Messages = append(chats[idx].Messages, msg)
	chats[idx].LastModifiedAt = now
	r.persist(ctx, chats)
}

// AppendVersion appends a regenerated response to one model's version list
// inside an existing message. The version label is assigned here, under the
// repository mutex, so concurrent regenerations cannot mint duplicates.
// Returns false when the chat or message does not exist.
func (r *ChatRepo) AppendVersion(ctx context.Context, chatID, messageID uuid.UUID, modelID string, rv models.ResponseVersion) (models.ResponseVersion, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats := r.loadChats(ctx)
	idx := indexOf(chats, chatID)
	if idx < 0 {
		return models.ResponseVersion{}, false
	}

	for m := range chats[idx].Messages {
		if chats[idx].Messages[m].ID != messageID {
			continue
		}
		if chats[idx].Messages[m].ModelResponses == nil {
			chats[idx].Messages[m].ModelResponses = map[string][]models.ResponseVersion{}
		}
		versions := chats[idx].Messages[m].ModelResponses[modelID]
		rv.Version = versionLabel(len(versions) + 1)
		chats[idx].Messages[m].ModelResponses[modelID] = append(versions, rv)
		chats[idx].LastModifiedAt = time.Now().UTC()
		r.persist(ctx, chats)
		return rv, true
	}
	return models.ResponseVersion{}, false
}

// RenameChat updates the title. A missing chat id is a no-op.
func (r *ChatRepo) RenameChat(ctx context.Context, chatID uuid.UUID, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats := r.loadChats(ctx)
	idx := indexOf(chats, chatID)
	if idx < 0 {
		return
	}
	chats[idx].Title = title
	chats[idx].LastModifiedAt = time.Now().UTC()
	r.persist(ctx, chats)
}

// DeleteChat removes the chat and its index entry. Idempotent: deleting an
// absent id does nothing.
func (r *ChatRepo) DeleteChat(ctx context.Context, chatID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats := r.loadChats(ctx)
	idx := indexOf(chats, chatID)
	if idx < 0 {
		return
	}
	chats = append(chats[:idx], chats[idx+1:]...)
	r.persist(ctx, chats)
}

// CloneChat deep-copies a chat under fresh ids everywhere (chat, messages,
// response versions), suffixes the title with " (Copy)" and persists the
// clone in the same operation. Returns false when the source id is unknown.
func (r *ChatRepo) CloneChat(ctx context.Context, chatID uuid.UUID) (*models.Chat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats := r.loadChats(ctx)
	idx := indexOf(chats, chatID)
	if idx < 0 {
		return nil, false
	}

	now := time.Now().UTC()
	clone := copyChat(chats[idx])
	clone.ID = uuid.New()
	clone.Title = chats[idx].Title + " (Copy)"
	clone.CreatedAt = now
	clone.LastModifiedAt = now
	for m := range clone.Messages {
		clone.Messages[m].ID = uuid.New()
		for modelID := range clone.Messages[m].ModelResponses {
			versions := clone.Messages[m].ModelResponses[modelID]
			for v := range versions {
				versions[v].ID = uuid.New()
			}
		}
	}

	chats = append(chats, clone)
	r.persist(ctx, chats)

	out := copyChat(clone)
	return &out, true
}

// ReconcileEmptyChats deletes every durable chat with zero messages and
// returns their ids. Run once at startup: a crash mid-flow can leave a
// durable empty chat behind, and empty chats must never be listed.
func (r *ChatRepo) ReconcileEmptyChats(ctx context.Context) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats := r.loadChats(ctx)
	var kept []models.Chat
	var deleted []uuid.UUID
	for _, chat := range chats {
		if len(chat.Messages) == 0 {
			deleted = append(deleted, chat.ID)
			continue
		}
		kept = append(kept, chat)
	}
	if len(deleted) > 0 {
		r.persist(ctx, kept)
	}
	return deleted
}

// ---- internals (callers hold r.mu) ----

func (r *ChatRepo) loadChats(ctx context.Context) []models.Chat {
	data, ok, err := r.store.Get(ctx, chatsKey)
	if err != nil {
		log.Printf("chat repo: failed to read %s, starting empty: %v", chatsKey, err)
		return nil
	}
	if !ok {
		return nil
	}
	var chats []models.Chat
	if err := json.Unmarshal(data, &chats); err != nil {
		log.Printf("chat repo: corrupt %s record, starting empty: %v", chatsKey, err)
		return nil
	}
	return chats
}

func (r *ChatRepo) loadHistory(ctx context.Context) []models.HistoryEntry {
	data, ok, err := r.store.Get(ctx, historyKey)
	if err != nil {
		log.Printf("chat repo: failed to read %s, starting empty: %v", historyKey, err)
		return nil
	}
	if !ok {
		return nil
	}
	var entries []models.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("chat repo: corrupt %s record, starting empty: %v", historyKey, err)
		return nil
	}
	return entries
}

// persist writes the chat collection and rebuilds the history index from it
// in the same operation, keeping the two records consistent. Ephemeral
// leftovers (zero messages) are excluded from the index.
func (r *ChatRepo) persist(ctx context.Context, chats []models.Chat) {
	chatData, err := json.Marshal(chats)
	if err != nil {
		log.Printf("chat repo: failed to encode chats: %v", err)
		return
	}
	if err := r.store.Set(ctx, chatsKey, chatData); err != nil {
		log.Printf("chat repo: failed to write %s: %v", chatsKey, err)
		return
	}

	entries := make([]models.HistoryEntry, 0, len(chats))
	for _, chat := range chats {
		if len(chat.Messages) == 0 {
			continue
		}
		entries = append(entries, models.HistoryEntry{
			ID:        chat.ID,
			Title:     chat.Title,
			Timestamp: chat.LastModifiedAt,
		})
	}
	historyData, err := json.Marshal(entries)
	if err != nil {
		log.Printf("chat repo: failed to encode history: %v", err)
		return
	}
	if err := r.store.Set(ctx, historyKey, historyData); err != nil {
		log.Printf("chat repo: failed to write %s: %v", historyKey, err)
	}
}

func indexOf(chats []models.Chat, id uuid.UUID) int {
	for i := range chats {
		if chats[i].ID == id {
			return i
		}
	}
	return -1
}

// sortChats orders newest-first by LastModifiedAt. The stored slice is in
// insertion order, so reversing before the stable sort makes the most
// recently inserted chat win ties.
func sortChats(chats []models.Chat) []models.Chat {
	out := make([]models.Chat, len(chats))
	for i, chat := range chats {
		out[len(chats)-1-i] = copyChat(chat)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastModifiedAt.After(out[j].LastModifiedAt)
	})
	return out
}

// copyChat returns a deep copy so callers can never mutate stored state
// through a returned chat.
func copyChat(chat models.Chat) models.Chat {
	out := chat
	out.Messages = make([]models.Message, len(chat.Messages))
	for i, msg := range chat.Messages {
		m := msg
		m.ModelResponses = make(map[string][]models.ResponseVersion, len(msg.ModelResponses))
		for modelID, versions := range msg.ModelResponses {
			vs := make([]models.ResponseVersion, len(versions))
			copy(vs, versions)
			m.ModelResponses[modelID] = vs
		}
		out.Messages[i] = m
	}
	return out
}

func versionLabel(n int) string {
	return "v" + strconv.Itoa(n)
}

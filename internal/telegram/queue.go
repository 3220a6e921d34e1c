package telegram

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// chatQueues runs updates of the same chat one after another in arrival
// order. Each busy chat has a single worker goroutine which exits once its
// queue is empty. Different chats proceed in parallel.
type chatQueues struct {
	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
	wg     sync.WaitGroup
	handle func(tgbotapi.Update)
}

func newChatQueues(handle func(tgbotapi.Update)) *chatQueues {
	return &chatQueues{queues: make(map[int64][]tgbotapi.Update), handle: handle}
}

// Push appends update to the chat's queue and starts a worker if the chat
// was idle. It never blocks on the handler.
func (c *chatQueues) Push(chatID int64, update tgbotapi.Update) {
	c.mu.Lock()
	pending, busy := c.queues[chatID]
	c.queues[chatID] = append(pending, update)
	if busy {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go c.drain(chatID)
}

func (c *chatQueues) drain(chatID int64) {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		pending := c.queues[chatID]
		if len(pending) == 0 {
			delete(c.queues, chatID)
			c.mu.Unlock()
			return
		}
		update := pending[0]
		pending[0] = tgbotapi.Update{}
		c.queues[chatID] = pending[1:]
		c.mu.Unlock()

		c.handle(update)
	}
}

// Wait blocks until every queued update has been handled.
func (c *chatQueues) Wait() {
	c.wg.Wait()
}

func (c *chatQueues) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queues)
}

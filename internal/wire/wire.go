package wire

import (
	"Lighthouse/internal/api"
	"Lighthouse/internal/api/config"
	"Lighthouse/internal/api/handler"
	"Lighthouse/internal/job"
	"Lighthouse/internal/pkg/cache"
	"Lighthouse/internal/pkg/cron"
	"Lighthouse/internal/pkg/redis"
	"Lighthouse/internal/pkg/ws"
	"Lighthouse/internal/service"
	"time"

	mongopkg "Lighthouse/internal/pkg/mongo"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router      *gin.Engine
	Hub         *ws.Hub
	CronMgr     *cron.Manager
	ChatService service.ChatService
}

func BuildApplication(db *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	convRepo := mongopkg.NewConversationRepo(db)
	classifier := service.NewClassifier(cfg.Reminder.DisplayThreshold)

	idemStore := cache.NewTTLStore(cfg.Dispatch.IdempotencyTTL, time.Now)
	presenceStore := cache.NewTTLStore(2*cfg.Dispatch.HeartbeatInterval, time.Now)
	listingStore := cache.NewTTLStore(cfg.Queue.CacheTTL, time.Now)

	dispatcher := ws.NewDispatcher(idemStore, redis.Publish)
	presence := service.NewPresenceTracker(presenceStore, dispatcher)

	queueService := service.NewQueueService(convRepo, classifier, listingStore)
	chatService := service.NewChatService(convRepo, classifier, dispatcher, queueService)
	reminderService := service.NewReminderService(convRepo, cfg.Reminder)

	hub := ws.NewHub()

	handlers := &api.HandlersGroup{
		ChatHandler:         handler.NewChatHandler(chatService),
		ConversationHandler: handler.NewConversationHandler(chatService, reminderService),
		QueueHandler:        handler.NewQueueHandler(queueService),
		WSHandler:           handler.NewWSHandler(hub, chatService, presence, cfg.Dispatch),
	}

	router := api.SetupRouter(handlers)

	sweepJob := job.NewReminderSweepJob(reminderService, queueService, dispatcher)
	janitorJob := job.NewCacheJanitorJob(idemStore, presenceStore, listingStore)
	cronMgr := cron.NewCronManager(cfg.Reminder, sweepJob, janitorJob)

	return &ApplicationContainer{
		Router:      router,
		Hub:         hub,
		CronMgr:     cronMgr,
		ChatService: chatService,
	}, nil
}

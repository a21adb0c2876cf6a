package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/charla-app/charla/internal/config"
	"github.com/charla-app/charla/internal/core"
	"github.com/charla-app/charla/internal/store"
)

type app struct {
	sessions *core.SessionService
	chats    *core.ChatService

	currentChatID string
}

func main() {
	cfg := config.Load()

	zapConfig := zap.NewProductionConfig()
	if strings.EqualFold(cfg.LogLevel, "debug") {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	var storage store.Storage
	if cfg.UseInMemory {
		storage = store.NewMemoryStorage()
		logger.Info("using in-memory storage, state will not survive exit")
	} else {
		sqliteStorage, err := store.NewSQLiteStorage(cfg.StoragePath)
		if err != nil {
			logger.Fatal("failed to initialize storage", zap.Error(err))
		}
		defer sqliteStorage.Close()
		storage = sqliteStorage
	}

	directory := store.NewUserDirectory(storage, logger)
	sessions := core.NewSessionService(directory, storage, logger)
	responder := core.NewKeywordResponder(cfg.ResponderDelay)
	chats := core.NewChatService(sessions, responder, logger)

	a := &app{
		sessions: sessions,
		chats:    chats,
	}
	a.run(context.Background())
}

func (a *app) run(ctx context.Context) {
	fmt.Println("Charla — asistente de conversación. Escribe 'help' para ver los comandos.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("charla %s> ", a.status(ctx))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			a.printHelp(ctx)
		case "register":
			a.register(ctx, scanner)
		case "login":
			a.login(ctx, scanner)
		case "logout":
			if err := a.sessions.Logout(ctx); err != nil {
				a.notify(err)
			} else {
				a.currentChatID = ""
				fmt.Println("Sesión cerrada")
			}
		case "profile":
			a.profile(ctx, scanner)
		case "list":
			a.list(ctx)
		case "new":
			a.newChat(ctx, strings.Join(args, " "))
		case "open":
			a.open(ctx, args)
		case "send":
			a.send(ctx, strings.Join(args, " "))
		case "delete":
			a.deleteChat(ctx, args)
		case "exit", "quit":
			return
		default:
			fmt.Printf("Comando desconocido: %s\n", cmd)
		}
	}
}

func (a *app) status(ctx context.Context) string {
	user, err := a.sessions.Current(ctx)
	if err != nil {
		return "(sin sesión)"
	}
	return user.Email
}

func (a *app) printHelp(ctx context.Context) {
	if _, err := a.sessions.Current(ctx); err != nil {
		fmt.Println("Comandos: register, login, exit")
		return
	}
	fmt.Println("Comandos: list, new [título], open <n>, send <mensaje>, delete <n>, profile, logout, exit")
}

// notify prints the transient user-facing notice for a failed operation.
func (a *app) notify(err error) {
	fmt.Println(core.UserMessage(err))
}

func (a *app) prompt(scanner *bufio.Scanner, label string) string {
	fmt.Printf("%s: ", label)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func (a *app) register(ctx context.Context, scanner *bufio.Scanner) {
	name := a.prompt(scanner, "Nombre")
	email := a.prompt(scanner, "Correo electrónico")
	password := a.prompt(scanner, "Contraseña")
	confirm := a.prompt(scanner, "Confirmar contraseña")

	if password != confirm {
		fmt.Println("Las contraseñas no coinciden")
		return
	}

	user, err := a.sessions.Register(ctx, core.RegisterParams{
		Name:     name,
		Email:    email,
		Password: password,
	})
	if err != nil {
		a.notify(err)
		return
	}
	fmt.Printf("¡Bienvenido, %s!\n", user.Name)
}

func (a *app) login(ctx context.Context, scanner *bufio.Scanner) {
	email := a.prompt(scanner, "Correo electrónico")
	password := a.prompt(scanner, "Contraseña")

	user, err := a.sessions.Login(ctx, email, password)
	if err != nil {
		a.notify(err)
		return
	}
	fmt.Printf("Has iniciado sesión como %s\n", user.Name)
}

func (a *app) profile(ctx context.Context, scanner *bufio.Scanner) {
	user, err := a.sessions.Current(ctx)
	if err != nil {
		a.notify(err)
		return
	}

	fmt.Printf("Nombre actual: %s\nCorreo actual: %s\n", user.Name, user.Email)
	patch := core.ProfilePatch{}
	if name := a.prompt(scanner, "Nuevo nombre (vacío para mantener)"); name != "" {
		patch.Name = &name
	}
	if email := a.prompt(scanner, "Nuevo correo (vacío para mantener)"); email != "" {
		patch.Email = &email
	}
	if current := a.prompt(scanner, "Contraseña actual (vacío para no cambiarla)"); current != "" {
		if current != user.Password {
			fmt.Println("La contraseña actual es incorrecta")
			return
		}
		newPassword := a.prompt(scanner, "Nueva contraseña")
		confirm := a.prompt(scanner, "Confirmar nueva contraseña")
		if newPassword != confirm {
			fmt.Println("Las nuevas contraseñas no coinciden")
			return
		}
		patch.Password = &newPassword
	}

	if _, err := a.sessions.UpdateProfile(ctx, patch); err != nil {
		a.notify(err)
		return
	}
	fmt.Println("Perfil actualizado")
}

func (a *app) list(ctx context.Context) {
	chats, err := a.chats.Chats(ctx)
	if err != nil {
		a.notify(err)
		return
	}
	if len(chats) == 0 {
		fmt.Println("No tienes conversaciones. Usa 'new' para crear una.")
		return
	}
	for i, chat := range chats {
		marker := " "
		if chat.ID == a.currentChatID {
			marker = "*"
		}
		fmt.Printf("%s %d. %s (%d mensajes)\n", marker, i+1, chat.Title, len(chat.Messages))
	}
}

func (a *app) newChat(ctx context.Context, title string) {
	chat, err := a.chats.CreateChat(ctx, title)
	if err != nil {
		a.notify(err)
		return
	}
	a.currentChatID = chat.ID
	fmt.Printf("Conversación creada: %s\n", chat.Title)
}

// chatByIndex resolves a 1-based list index from command arguments.
func (a *app) chatByIndex(ctx context.Context, args []string) (*store.Chat, error) {
	if len(args) != 1 {
		return nil, core.ErrChatNotFound
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, core.ErrChatNotFound
	}
	chats, err := a.chats.Chats(ctx)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(chats) {
		return nil, core.ErrChatNotFound
	}
	return &chats[n-1], nil
}

func (a *app) open(ctx context.Context, args []string) {
	chat, err := a.chatByIndex(ctx, args)
	if err != nil {
		a.notify(err)
		return
	}
	a.currentChatID = chat.ID
	fmt.Printf("— %s —\n", chat.Title)
	for _, message := range chat.Messages {
		prefix := "tú"
		if message.Sender == store.SenderAI {
			prefix = "ia"
		}
		fmt.Printf("[%s] %s\n", prefix, message.Content)
	}
}

func (a *app) send(ctx context.Context, content string) {
	if content == "" {
		fmt.Println("Escribe un mensaje: send <mensaje>")
		return
	}
	if a.currentChatID == "" {
		fmt.Println("Abre una conversación primero con 'open <n>' o crea una con 'new'")
		return
	}

	fmt.Println("...")
	chat, err := a.chats.SendMessage(ctx, a.currentChatID, content)
	if err != nil {
		a.notify(err)
		return
	}
	last := chat.Messages[len(chat.Messages)-1]
	fmt.Printf("[ia] %s\n", last.Content)
}

func (a *app) deleteChat(ctx context.Context, args []string) {
	chat, err := a.chatByIndex(ctx, args)
	if err != nil {
		a.notify(err)
		return
	}
	if err := a.chats.DeleteChat(ctx, chat.ID); err != nil {
		a.notify(err)
		return
	}
	if chat.ID == a.currentChatID {
		a.currentChatID = ""
	}
	fmt.Printf("Conversación eliminada: %s\n", chat.Title)
}

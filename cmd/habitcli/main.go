package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/habitflow/internal/db"
	"github.com/habitflow/internal/repository"
	"github.com/habitflow/internal/service"
	"github.com/habitflow/internal/state"
	"github.com/habitflow/internal/store"
)

const usage = `用法: habitcli <命令> [参数]

命令:
  list  <邮箱> <密码>                  登录并打印当前习惯列表
  add   <邮箱> <密码> <标题> <频率>    创建习惯（频率: daily/weekly/monthly）
  done  <邮箱> <密码> <习惯ID> <日期>  切换指定日期的打卡状态（YYYY-MM-DD）
  watch <邮箱> <密码>                  持续打印快照，Ctrl+C 退出

环境变量 DATABASE_PATH 指定数据库文件。`

func main() {
	if len(os.Args) < 4 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	email, password := os.Args[2], os.Args[3]

	if err := db.Init(os.Getenv("DATABASE_PATH")); err != nil {
		log.Fatalf("数据库初始化失败: %v", err)
	}

	// 组装客户端核心：身份协作方 → 会话存储 → 同步存储
	repo := repository.NewHabitRepository(store.NewGormClient(db.DB))
	habitStore := state.NewHabitStore(repo)
	sessionStore := state.NewSessionStore(service.NewAuthService(db.DB))

	removeWatch := sessionStore.OnIdentityChange(func(identity *state.Identity) {
		if identity == nil {
			habitStore.AttachSession("")
			return
		}
		habitStore.AttachSession(identity.ID)
	})
	defer removeWatch()

	if err := sessionStore.SignIn(email, password); err != nil {
		log.Fatalf("登录失败: %v", err)
	}
	defer sessionStore.SignOut()

	if err := waitForSync(habitStore); err != nil {
		log.Fatalf("同步失败: %v", err)
	}

	switch command {
	case "list":
		printSnapshot(habitStore.Snapshot())
	case "add":
		if len(os.Args) < 6 {
			log.Fatal("add 需要标题与频率参数")
		}
		habit, err := habitStore.Create(repository.HabitInput{
			Title:     os.Args[4],
			Frequency: os.Args[5],
		})
		if err != nil {
			log.Fatalf("创建失败: %v", err)
		}
		fmt.Printf("已创建: %s (%s)\n", habit.Title, habit.ID)
	case "done":
		if len(os.Args) < 6 {
			log.Fatal("done 需要习惯ID与日期参数")
		}
		if err := habitStore.ToggleCompletion(os.Args[4], os.Args[5]); err != nil {
			log.Fatalf("打卡失败: %v", err)
		}
		fmt.Println("已切换打卡状态")
	case "watch":
		watchSnapshots(habitStore)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

// waitForSync 等待首个订阅快照到达
func waitForSync(habitStore *state.HabitStore) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snapshot := habitStore.Snapshot()
		switch snapshot.SyncState {
		case state.SyncIdle:
			return nil
		case state.SyncError:
			return fmt.Errorf("%s", snapshot.Error)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for first snapshot")
}

func watchSnapshots(habitStore *state.HabitStore) {
	remove := habitStore.AddListener(func(snapshot state.Snapshot) {
		printSnapshot(snapshot)
	})
	defer remove()

	printSnapshot(habitStore.Snapshot())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

func printSnapshot(snapshot state.Snapshot) {
	fmt.Printf("-- %d 个习惯 (%s)\n", len(snapshot.Habits), snapshot.SyncState)
	for _, habit := range snapshot.Habits {
		marker := " "
		today := time.Now().Format("2006-01-02")
		for _, d := range habit.CompletedDates {
			if d == today {
				marker = "✓"
				break
			}
		}
		fmt.Printf("[%s] %-20s %-8s %s\n", marker, habit.Title, habit.Frequency, habit.ID)
	}
	if snapshot.Error != "" {
		fmt.Println("错误:", strings.TrimSpace(snapshot.Error))
	}
}

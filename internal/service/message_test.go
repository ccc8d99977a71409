package service

import (
	"sync"
	"testing"

	"campus_chat/internal/apperrors"
	"campus_chat/internal/models"

	"github.com/stretchr/testify/require"
)

func Test_Send_And_Fetch_Newest_First(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice", "bob")
	room, err := services.Room.FindOrCreateDirectRoom(ids[0], ids[1])
	req.NoError(err)

	// Given A 先說 hi，B 再說 hello
	m1 := sendText(t, services, room.ID, ids[0], "hi")
	m2 := sendText(t, services, room.ID, ids[1], "hello")
	req.Equal(int64(1), m1.Seq)
	req.Equal(int64(2), m2.Seq)

	// When 不帶游標讀取最新一頁
	messages, nextCursor, err := services.Message.FetchPage(room.ID, ids[0], nil, 10)
	req.NoError(err)

	// Then 最新的在前面，不足一頁所以沒有下一頁
	req.Len(messages, 2)
	req.Equal("hello", messages[0].Content)
	req.Equal("hi", messages[1].Content)
	req.Nil(nextCursor)
}

func Test_Send_By_Non_Member_Is_Unauthorized(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice", "bob", "eve")
	room, err := services.Room.FindOrCreateDirectRoom(ids[0], ids[1])
	req.NoError(err)

	_, err = services.Message.Append(SendMessageInput{
		RoomID: room.ID, SenderID: ids[2],
		Kind: models.MessageKindText, Content: "偷聽",
	})
	req.ErrorIs(err, apperrors.ErrUnauthorized)

	_, _, err = services.Message.FetchPage(room.ID, ids[2], nil, 10)
	req.ErrorIs(err, apperrors.ErrUnauthorized)
}

func Test_Send_Validation(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice", "bob")
	room, err := services.Room.FindOrCreateDirectRoom(ids[0], ids[1])
	req.NoError(err)

	// 文字訊息不能沒有內容
	_, err = services.Message.Append(SendMessageInput{
		RoomID: room.ID, SenderID: ids[0], Kind: models.MessageKindText,
	})
	req.ErrorIs(err, apperrors.ErrInvalidArgument)

	// 檔案訊息必須帶附件參照
	_, err = services.Message.Append(SendMessageInput{
		RoomID: room.ID, SenderID: ids[0], Kind: models.MessageKindFile, Content: "report.pdf",
	})
	req.ErrorIs(err, apperrors.ErrInvalidArgument)

	// 未知的訊息類型
	_, err = services.Message.Append(SendMessageInput{
		RoomID: room.ID, SenderID: ids[0], Kind: "sticker", Content: "!",
	})
	req.ErrorIs(err, apperrors.ErrInvalidArgument)

	// 冪等鍵必須是 UUID
	bad := "not-a-uuid"
	_, err = services.Message.Append(SendMessageInput{
		RoomID: room.ID, SenderID: ids[0], Kind: models.MessageKindText,
		Content: "hi", ClientMsgID: &bad,
	})
	req.ErrorIs(err, apperrors.ErrInvalidArgument)
}

func Test_Send_File_Message(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice", "bob")
	room, err := services.Room.FindOrCreateDirectRoom(ids[0], ids[1])
	req.NoError(err)

	ref := "blob://2026/09/report.pdf"
	message, err := services.Message.Append(SendMessageInput{
		RoomID: room.ID, SenderID: ids[0],
		Kind: models.MessageKindFile, Content: "report.pdf", AttachmentRef: &ref,
	})
	req.NoError(err)
	req.Equal(models.MessageKindFile, message.Kind)
	req.Equal(ref, *message.AttachmentRef)
}

func Test_Resend_With_Same_ClientMsgID_Returns_Existing(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice", "bob")
	room, err := services.Room.FindOrCreateDirectRoom(ids[0], ids[1])
	req.NoError(err)

	clientID := "0c5ac84b-64a2-4892-aa4a-d19f14e46c0f"
	first, err := services.Message.Append(SendMessageInput{
		RoomID: room.ID, SenderID: ids[0],
		Kind: models.MessageKindText, Content: "只會送達一次", ClientMsgID: &clientID,
	})
	req.NoError(err)

	// When 客戶端因逾時而重送
	second, err := services.Message.Append(SendMessageInput{
		RoomID: room.ID, SenderID: ids[0],
		Kind: models.MessageKindText, Content: "只會送達一次", ClientMsgID: &clientID,
	})
	req.NoError(err)

	// Then 回到同一筆訊息，沒有重複寫入
	req.Equal(first.ID, second.ID)
	req.Equal(first.Seq, second.Seq)

	messages, _, err := services.Message.FetchPage(room.ID, ids[0], nil, 10)
	req.NoError(err)
	req.Len(messages, 1)
}

func Test_Send_Advances_Sender_Read_Pointer(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice", "bob")
	room, err := services.Room.FindOrCreateDirectRoom(ids[0], ids[1])
	req.NoError(err)

	sendText(t, services, room.ID, ids[0], "hi")

	// 自己發的訊息不會出現在自己的未讀裡
	count, err := services.ReadTracker.UnreadCount(room.ID, ids[0])
	req.NoError(err)
	req.Equal(int64(0), count)

	// 對方則多了一則未讀
	count, err = services.ReadTracker.UnreadCount(room.ID, ids[1])
	req.NoError(err)
	req.Equal(int64(1), count)
}

func Test_Concurrent_Sends_Get_Unique_Ordered_Seq(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice", "bob")
	room, err := services.Room.FindOrCreateDirectRoom(ids[0], ids[1])
	req.NoError(err)

	// When 多個 goroutine 同時往同一個房間發訊息
	const senders = 8
	var wg sync.WaitGroup
	errs := make(chan error, senders)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sender := ids[n%2]
			_, err := services.Message.Append(SendMessageInput{
				RoomID: room.ID, SenderID: sender,
				Kind: models.MessageKindText, Content: "parallel",
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	// Then 序號 1..N 各出現一次，沒有重複也沒有空洞
	messages, _, err := services.Message.FetchPage(room.ID, ids[0], nil, senders+1)
	req.NoError(err)
	req.Len(messages, senders)
	for i, m := range messages {
		req.Equal(int64(senders-i), m.Seq)
	}
}

func Test_FetchPage_Invalid_Cursor(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice", "bob")
	room, err := services.Room.FindOrCreateDirectRoom(ids[0], ids[1])
	req.NoError(err)

	zero := int64(0)
	_, _, err = services.Message.FetchPage(room.ID, ids[0], &zero, 10)
	req.ErrorIs(err, apperrors.ErrInvalidArgument)
}

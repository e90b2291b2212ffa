// Package minigameshub 提供一個即時多人小遊戲中心服務。
//
// 實現了一個以房間為單位的即時對戰服務器，支援三種小遊戲：
// 井字棋（先拿 3 回合獲勝）、猜拳（先拿 5 回合獲勝）、翻牌配對
// （配對數多者勝）。
//
// 核心功能
//
// 會話與房間：
//   - 大廳：房間列表、在線名單、大廳聊天（保留最近 120 條）
//   - 房間生命週期：waiting → in-progress → finished
//   - 玩家（上限 2 位）與不限數量的觀戰者
//   - 對戰邀請：送出、接受（自動建房開局）、拒絕
//   - 重賽投票：雙方同意才重開
//   - 斷線/離開判負：留下的玩家獲勝、房間清場
//
// # WebSocket 通訊
//
// 即時雙向通訊機制：
//   - 心跳檢測（54 秒 Ping / 60 秒讀取超時）
//   - 緩衝 channel 異步推送，慢客戶端不拖累房間
//   - 握手時以 JWT 驗證身份，之後信任連接
//
// 統計與排行榜
//
// 終局結果以 fire-and-forget 方式寫入統計存儲：
//   - PostgreSQL 持久化（未配置時退回進程記憶體）
//   - Redis 旁路快取加速排行榜查詢
//   - 徽章每次寫入後全量重算
//
// 架構設計
//
// 系統採用分層架構設計：
//   - hub 層：WebSocket 傳輸與 HTTP 入口
//   - session 層：會話註冊表、房間、事件協議
//   - game 層：三種遊戲的規則引擎（策略模式）
//   - stats 層：統計持久化與排行榜
//
// 每層都有明確的職責邊界：傳輸層只管封包，規則引擎只管合法性
// 與勝負，所有跨房間的狀態由會話註冊表的單一互斥鎖序列化。
package minigameshub

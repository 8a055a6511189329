// Package server exposes the HTTP handlers: the websocket upgrade, a health
// check, and a built-in test page.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler upgrades the HTTP connection and hands the resulting
// client to the hub, which replays history and starts the pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr)
	s.hub.register <- client
}

// HealthHandler reports that the server is up.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Palaver hub is running!")
}

// TestPageHandler serves a minimal chat page speaking the hub's JSON
// protocol, for poking at the server without a real client.
func (s *Server) TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Palaver Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; background: #f9f9f9; }
        #roster { color: #555; margin: 5px 0; }
        input[type="text"] { width: 260px; padding: 5px; margin-right: 8px; }
        button { padding: 5px 15px; }
        .system { color: gray; font-style: italic; }
        .message { color: black; }
    </style>
</head>
<body>
    <h1>Palaver</h1>
    <div id="roster">Nobody here yet</div>
    <div>
        <input type="text" id="pseudoInput" placeholder="Display name...">
        <button onclick="setPseudo()">Set name</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>
    <div id="messages"></div>

    <script>
        let pseudo = null;
        const messagesDiv = document.getElementById('messages');
        const roster = document.getElementById('roster');
        const pseudoInput = document.getElementById('pseudoInput');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');

        const ws = new WebSocket('ws://' + location.host + '/ws');

        function addLine(text, cls) {
            const el = document.createElement('div');
            el.className = cls;
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        ws.onmessage = function(event) {
            const data = JSON.parse(event.data);
            if (data.type === 'message') {
                addLine(data.pseudo + ': ' + data.txt, 'message');
            } else if (data.type === 'system') {
                addLine(data.txt, 'system');
            } else if (data.type === 'pseudos') {
                roster.textContent = data.pseudos.length ? 'Online: ' + data.pseudos.join(', ') : 'Nobody here yet';
            } else if (data.type === 'history') {
                data.messages.forEach(m => addLine(m.pseudo + ': ' + m.txt, 'message'));
            }
        };

        ws.onclose = function() { addLine('Connection closed', 'system'); };

        function setPseudo() {
            const name = pseudoInput.value.trim();
            if (!name || ws.readyState !== WebSocket.OPEN) return;
            ws.send(JSON.stringify({type: 'pseudo', txt: name}));
            pseudo = name;
            messageInput.disabled = false;
            sendButton.disabled = false;
        }

        function sendMessage() {
            const txt = messageInput.value.trim();
            if (!txt || !pseudo || ws.readyState !== WebSocket.OPEN) return;
            ws.send(JSON.stringify({type: 'message', txt: txt, pseudo: pseudo}));
            messageInput.value = '';
        }

        messageInput.addEventListener('keypress', e => { if (e.key === 'Enter') sendMessage(); });
        pseudoInput.addEventListener('keypress', e => { if (e.key === 'Enter') setPseudo(); });
    </script>
</body>
</html>`

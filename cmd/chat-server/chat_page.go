package main

import (
    "net/http"
)

func serveChatPage(w http.ResponseWriter) {
    w.Header().Set("Content-Type", "text/html")
    w.WriteHeader(http.StatusOK)
    w.Write([]byte(chat_page))
}

const chat_page = `<html>
    <head>
        <title> Dummy chat relay </title>
        <meta charset="utf-8" name="viewport" />

        <style>
            body {
                padding-left: 10%;
                padding-right: 10%;
                font-size: large;
            }
            div {
                display: flex;
                flex-direction: row;
                align-items: baseline;
                margin-bottom: 0.25em;
            }
            label {
                font-size: large;
            }
            input.button {
                height: 2em;
                font-size: large;
            }
            input.textbox {
                width: 90%;
                margin-right: 0.25em;
                margin-top: 0.25em;
                height: 2em;
                font-size: large;
            }
            div.textbox {
                display: block;
                width: 95%;
                height: 75%;
                margin-top: 0.25em;
                overflow-y: scroll;
                border: solid;
                padding: 1em;
            }
            p.error {
                color: red;
            }
            p.system {
                color: gray;
            }
        </style>

        <script>
            let ws = null;
            let name = '';
            let room = '';

            let appendMsg = function(msg, kind) {
                let chat = document.getElementById('chat');
                chat.innerHTML += '<p class="' + kind + '"> ' + msg + ' </p>';
                chat.scrollTo(0, chat.scrollHeight);
            }

            let showInfo = function() {
                let info = document.getElementById('info');
                info.innerHTML = name + ' @ ' + room;
            }

            let wsRecv = function(e) {
                let n = JSON.parse(e.data);
                if (n.set_info != null) {
                    name = n.set_info[0];
                    room = n.set_info[1];
                    showInfo();
                    return;
                }
                if (n.sender_type == 'user') {
                    appendMsg(n.sender_name + ': ' + n.message, 'user');
                } else {
                    appendMsg(n.message, n.sender_type);
                }
            }

            let wsClose = function(e) {
                appendMsg('Connection to the relay was closed!', 'system');
                ws = null;
            }

            let connect = function() {
                if (ws != null) {
                    ws.close()
                    ws = null;
                }

                ws = new WebSocket('ws://' + window.location.host + '/chat')
                ws.addEventListener('message', wsRecv)
                ws.addEventListener('close', wsClose)
            }

            let send = function() {
                let mfield = document.getElementById('message');

                let msg = mfield.value;
                if (msg == '' || ws == null) {
                    return;
                }

                ws.send(msg);

                mfield.value = '';
            }

            let on_boot = function (e) {
                let mfield = document.getElementById('message');
                mfield.addEventListener('keyup', function (e) {
                    if (event.key == 'Enter') {
                        send();
                    }
                });
            }
            document.addEventListener('DOMContentLoaded', on_boot);
        </script>
    </head>

    <body>
        <div>
            <input class='button' onclick="connect();" type="button" value="Connect">
            <label id='info'> </label>
        </div>

        <div class='textbox' id='chat'> </div>

        <div>
            <input class='textbox' type='text' id='message' name='message'>
            <input class='button' onclick="send();" type="button" value="Send">
        </div>
    </body>
</html>`

package render

// fragmentTemplateString 是简历画布的 Go HTML 模板
// 它必须 100% 匹配编辑器里的排版逻辑：个人信息的行内/栅格两种布局、
// 模块里的标签行与多列内容行
const fragmentTemplateString = `
<div class="resume-content">
    {{if .Avatar}}
    <div class="resume-avatar {{if eq .AvatarShape "circle"}}avatar-circle{{else}}avatar-square{{end}}">
        <img src="{{.Avatar | safeURL}}" alt="" />
    </div>
    {{end}}

    <h1 class="resume-title{{if .TitleCentered}} title-centered{{end}}">{{.Title}}</h1>

    {{if .PersonalInfo}}
    <div class="personal-info layout-{{.InfoLayoutMode}}"{{if .InfoColumns}} style="--info-columns: {{.InfoColumns}};"{{end}}>
        {{range .PersonalInfo}}
        <span class="info-item">
            {{if .Icon}}<span class="info-icon">{{.Icon}}</span>{{end}}
            {{if .ShowLabel}}<span class="info-label">{{.Label}}：</span>{{end}}
            {{if .LinkURL}}<a class="info-value" href="{{.LinkURL | safeURL}}">{{.Text}}</a>{{else}}<span class="info-value">{{.Text}}</span>{{end}}
        </span>
        {{end}}
    </div>
    {{end}}

    {{if .JobIntention}}
    <div class="job-intention">
        {{range .JobIntention}}<span class="intention-item">{{.}}</span>{{end}}
    </div>
    {{end}}

    {{range .Modules}}
    <section class="resume-module">
        <h2 class="module-title">{{if .Icon}}<span class="module-icon">{{.Icon}}</span>{{end}}{{.Title}}</h2>
        {{range .Rows}}
            {{if .Tags}}
            <div class="module-row tag-row">
                {{range .Tags}}<span class="tag">{{.}}</span>{{end}}
            </div>
            {{else}}
            <div class="module-row content-row" style="--row-columns: {{.Columns}};">
                {{range .Cells}}
                <!--
                  编辑器输出的富文本 HTML 已包含 <p> 等标签
                  Go 模板默认转义，这里必须用 safeHTML 原样渲染
                -->
                <div class="row-cell rich-text">{{. | safeHTML}}</div>
                {{end}}
            </div>
            {{end}}
        {{end}}
    </section>
    {{end}}
</div>
`

// printShellTemplateString 是打印页外壳
// 打印样式必须与导出的 PDF 捕获参数一致：A4、保留背景、@page 不加额外边距
const printShellTemplateString = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        @page {
            size: A4;
            margin: 0;
        }
        * {
            -webkit-print-color-adjust: exact;
            print-color-adjust: exact;
        }
        body {
            margin: 0;
            padding: 0;
            font-family: 'PingFang SC', 'Microsoft YaHei', 'Helvetica Neue', sans-serif;
            background: white;
        }
        .resume-content {
            width: 210mm;
            min-height: 297mm;
            margin: 0 auto;
            padding: 15mm 18mm;
            box-sizing: border-box;
            background: white;
        }
        .resume-title {
            font-size: 22pt;
            margin: 0 0 8px;
        }
        .title-centered { text-align: center; }
        .resume-avatar { float: right; width: 28mm; height: 36mm; overflow: hidden; }
        .resume-avatar img { width: 100%; height: 100%; object-fit: cover; }
        .avatar-circle { border-radius: 50%; height: 28mm; }
        .personal-info.layout-inline { display: flex; flex-wrap: wrap; gap: 4px 16px; }
        .personal-info.layout-grid {
            display: grid;
            grid-template-columns: repeat(var(--info-columns, 2), 1fr);
            gap: 4px 16px;
        }
        .info-label { color: #555; }
        .job-intention { margin-top: 6px; }
        .intention-item { margin-right: 14px; }
        .resume-module { margin-top: 14px; }
        .module-title {
            font-size: 13pt;
            border-bottom: 1.5px solid #333;
            padding-bottom: 3px;
            margin: 0 0 6px;
        }
        .tag-row .tag {
            display: inline-block;
            background: #f0f2f5;
            border-radius: 3px;
            padding: 1px 8px;
            margin: 0 6px 4px 0;
        }
        .content-row {
            display: grid;
            grid-template-columns: repeat(var(--row-columns, 1), 1fr);
            gap: 0 12px;
        }
        .rich-text p { margin: 2px 0; }
        .stalled-hint { display: none; text-align: center; color: #999; padding: 48px 0; }
        body.stalled .stalled-hint { display: block; }
    </style>
</head>
<body>
    <div id="print-root"></div>
    <div class="stalled-hint">未收到简历数据，请回到编辑页重新发起打印。</div>
    <script>
    (function () {
        var STORAGE_KEY = {{.StorageKey}};
        var READY_TIMEOUT_MS = 5000;
        var rendered = false;

        function render(data) {
            if (rendered) return;
            var req = new XMLHttpRequest();
            req.open('POST', '/v1/render', true);
            req.setRequestHeader('Content-Type', 'application/json');
            req.onload = function () {
                if (req.status === 200) {
                    rendered = true;
                    document.getElementById('print-root').innerHTML = req.responseText;
                    if (window.opener) {
                        try { window.opener.postMessage({ type: 'ready' }, window.location.origin); } catch (e) {}
                    }
                }
            };
            req.send(typeof data === 'string' ? data : JSON.stringify(data));
        }

        // 路径一：无头浏览器在导航前写好的 sessionStorage
        try {
            var stored = window.sessionStorage.getItem(STORAGE_KEY);
            if (stored) {
                render(stored);
                return;
            }
        } catch (e) {}

        // 路径二：编辑页发起的交接会话，经服务端中转拿数据
        var session = new URLSearchParams(window.location.search).get('session');
        if (session) {
            var scheme = window.location.protocol === 'https:' ? 'wss' : 'ws';
            var ws = new WebSocket(scheme + '://' + window.location.host + '/v1/handoff/ws?session=' + encodeURIComponent(session) + '&role=surface');
            ws.onopen = function () { ws.send(JSON.stringify({ type: 'ready' })); };
            ws.onmessage = function (evt) {
                try {
                    var msg = JSON.parse(evt.data);
                    if (msg.type === 'documentData') render(msg.payload);
                } catch (e) {}
            };
        }

        setTimeout(function () {
            if (!rendered) document.body.classList.add('stalled');
        }, READY_TIMEOUT_MS);
    })();
    </script>
</body>
</html>
`

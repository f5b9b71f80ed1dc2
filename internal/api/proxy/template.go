package proxy

// proxyHTML is the outer sandbox document. It carries the derived CSP in a
// meta tag ({{OUTER_CSP}} is substituted per request), stages the guest HTML
// it receives from the host, and loads it into the inner frame via
// /mcp-app-guest so the guest sees a real same-origin URL.
const proxyHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="Content-Security-Policy" content="{{OUTER_CSP}}">
<style>
  html, body { margin: 0; padding: 0; width: 100%; height: 100%; overflow: hidden; }
  iframe { border: 0; width: 100%; height: 100%; display: block; }
</style>
</head>
<body>
<iframe id="guest" sandbox="allow-scripts allow-same-origin allow-forms"></iframe>
<script>
(function () {
  var params = new URLSearchParams(window.location.search);
  var secret = params.get("secret");
  var frame = document.getElementById("guest");

  // The host posts the guest HTML into this window; we stage it with the
  // server and point the frame at the one-time URL.
  window.addEventListener("message", function (event) {
    if (event.source !== window.parent) return;
    var data = event.data;
    if (!data || data.type !== "guest-html") return;

    fetch("/mcp-app-guest", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ secret: secret, html: data.html, csp: data.csp })
    })
      .then(function (res) { return res.json(); })
      .then(function (body) {
        frame.src = "/mcp-app-guest?secret=" + encodeURIComponent(secret) +
          "&nonce=" + encodeURIComponent(body.nonce);
      });
  });

  window.parent.postMessage({ type: "proxy-ready" }, "*");
})();
</script>
</body>
</html>
`
